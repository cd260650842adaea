package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-pkgz/requester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_RequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	lg := slog.New(&Chain{
		Middleware: []Middleware{RequestID()},
		Handler:    slog.NewJSONHandler(buf, nil),
	}).With(slog.String("prefix", "test"))

	lg.InfoContext(ContextWithRequestID(context.Background(), "req-1"), "with id")
	lg.InfoContext(context.Background(), "without id")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	assert.Equal(t, "req-1", first["request_id"])
	assert.Equal(t, "test", first["prefix"])
	assert.NotContains(t, second, "request_id")
}

func TestRequestIDFromContext(t *testing.T) {
	_, ok := RequestIDFromContext(context.Background())
	assert.False(t, ok)

	id, ok := RequestIDFromContext(ContextWithRequestID(context.Background(), "abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}

func TestNoOp(t *testing.T) {
	h := NoOp()
	assert.False(t, h.Enabled(context.Background(), slog.LevelError))
	assert.NoError(t, slog.New(h).WithGroup("g").With("k", "v").Handler().Handle(context.Background(), slog.Record{}))
}

func TestLoggingRoundTripper(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", "session=secret")
		_, err := w.Write([]byte(`{"data": [` + strings.Repeat(`"x",`, 20) + `"y"]}`))
		require.NoError(t, err)
	}))
	defer ts.Close()

	buf := &bytes.Buffer{}
	lg := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rq := requester.New(http.Client{}, LoggingRoundTripper(lg, ClientLogOpts{
		Level:       slog.LevelDebug,
		MaskHeaders: []string{"set-cookie", "Authorization"},
		BodyLimit:   16,
	}))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/distinguished-alumni", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer token")

	resp, err := rq.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// the body is still whole for the caller
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(body), `"y"]}`))

	var entry struct {
		Msg string `json:"msg"`
		Req struct {
			Method  string            `json:"method"`
			URL     string            `json:"url"`
			Headers map[string]string `json:"headers"`
		} `json:"req"`
		Resp struct {
			Status  int               `json:"status"`
			Headers map[string]string `json:"headers"`
			Body    string            `json:"body"`
		} `json:"resp"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "upstream request done", entry.Msg)
	assert.Equal(t, http.MethodGet, entry.Req.Method)
	assert.Equal(t, ts.URL+"/distinguished-alumni", entry.Req.URL)
	assert.Equal(t, "***", entry.Req.Headers["Authorization"])
	assert.Equal(t, http.StatusOK, entry.Resp.Status)
	assert.Equal(t, "***", entry.Resp.Headers["Set-Cookie"])
	assert.Equal(t, `{"data": ["x","x...`, entry.Resp.Body)
}

func TestLoggingRoundTripper_Failed(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	buf := &bytes.Buffer{}
	lg := slog.New(slog.NewJSONHandler(buf, nil))

	rq := requester.New(http.Client{}, LoggingRoundTripper(lg, ClientLogOpts{Level: slog.LevelWarn}))

	req, err := http.NewRequest(http.MethodGet, ts.URL, http.NoBody)
	require.NoError(t, err)

	_, err = rq.Do(req)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "upstream request failed")
}

func TestLoggingRoundTripper_Disabled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	buf := &bytes.Buffer{}
	lg := slog.New(slog.NewJSONHandler(buf, nil))

	rq := requester.New(http.Client{}, LoggingRoundTripper(lg, ClientLogOpts{Level: slog.LevelDebug}))

	req, err := http.NewRequest(http.MethodGet, ts.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := rq.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, buf.String())
}

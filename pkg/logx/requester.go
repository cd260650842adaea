package logx

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/requester/middleware"
	"github.com/samber/lo"
)

// DefaultBodyLimit is the amount of body bytes logged when the limit is not set.
const DefaultBodyLimit = 1024

// ClientLogOpts configures the logging of outgoing requests.
type ClientLogOpts struct {
	Level slog.Level
	// MaskHeaders are logged as "***".
	MaskHeaders []string
	// BodyLimit caps the logged part of the bodies, negative turns body logging off.
	BodyLimit int64
}

// LoggingRoundTripper logs every outgoing request together with its response,
// as a single record.
func LoggingRoundTripper(lg *slog.Logger, opts ClientLogOpts) middleware.RoundTripperHandler {
	if opts.BodyLimit == 0 {
		opts.BodyLimit = DefaultBodyLimit
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return middleware.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			if !lg.Enabled(ctx, opts.Level) {
				return next.RoundTrip(req)
			}

			reqAttrs := []any{
				slog.String("method", req.Method),
				slog.String("url", req.URL.String()),
				slog.Any("headers", opts.headers(req.Header)),
			}
			if req.Body != nil && req.Body != http.NoBody && opts.BodyLimit > 0 {
				var body string
				req.Body, body = peek(req.Body, opts.BodyLimit)
				reqAttrs = append(reqAttrs, slog.String("body", body))
			}

			start := time.Now()
			resp, err := next.RoundTrip(req)
			elapsed := time.Since(start)

			if err != nil {
				lg.LogAttrs(ctx, opts.Level, "upstream request failed",
					slog.Group("req", reqAttrs...),
					slog.Duration("elapsed", elapsed),
					slog.Any("err", err))
				return resp, err
			}

			respAttrs := []any{
				slog.Int("status", resp.StatusCode),
				slog.Any("headers", opts.headers(resp.Header)),
			}
			if opts.BodyLimit > 0 {
				var body string
				resp.Body, body = peek(resp.Body, opts.BodyLimit)
				respAttrs = append(respAttrs, slog.String("body", body))
			}

			lg.LogAttrs(ctx, opts.Level, "upstream request done",
				slog.Group("req", reqAttrs...),
				slog.Group("resp", respAttrs...),
				slog.Duration("elapsed", elapsed))

			return resp, nil
		})
	}
}

func (o ClientLogOpts) headers(h http.Header) map[string]string {
	res := make(map[string]string, len(h))
	for k, vals := range h {
		if lo.ContainsBy(o.MaskHeaders, func(m string) bool { return strings.EqualFold(m, k) }) {
			res[k] = "***"
			continue
		}
		res[k] = strings.Join(vals, ",")
	}
	return res
}

// peek reads up to limit bytes of the body for logging and returns a reader
// that still yields the whole body.
func peek(body io.ReadCloser, limit int64) (io.ReadCloser, string) {
	if body == nil {
		return nil, ""
	}

	buf := &bytes.Buffer{}
	n, err := io.CopyN(buf, body, limit)

	logged := strings.NewReplacer("\n", "", "\t", "").Replace(buf.String())
	if err == nil && n == limit {
		logged += "..."
	}

	// the source is read again after the buffer, so a read error reaches the caller
	return readCloser{Reader: io.MultiReader(buf, body), close: body.Close}, logged
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Semior001/alumni/pkg/logx"
	cache "github.com/go-pkgz/expirable-cache/v2"
	"github.com/go-pkgz/requester"
	"github.com/go-pkgz/requester/middleware"
)

const listCacheKey = "list"

// REST is a source that requests stories from the portal API, which wraps
// every response into {"data": ..., "error": ...}.
type REST struct {
	log     *slog.Logger
	rq      *requester.Requester
	baseURL string
	norm    Normalizer
	ttl     time.Duration
	cache   cache.Cache[string, []Record]
}

// NewREST makes a new REST source. Lists are cached for the given ttl,
// zero ttl turns the cache off.
func NewREST(lg *slog.Logger, cl http.Client, baseURL string, norm Normalizer, ttl time.Duration) *REST {
	return &REST{
		log: lg,
		rq: requester.New(cl,
			middleware.JSON,
			logx.LoggingRoundTripper(lg, logx.ClientLogOpts{Level: slog.LevelDebug}),
		),
		baseURL: strings.TrimRight(baseURL, "/"),
		norm:    norm,
		ttl:     ttl,
		cache:   cache.NewCache[string, []Record]().WithTTL(ttl).WithMaxKeys(1),
	}
}

// CacheStat returns stats of the list cache.
func (r *REST) CacheStat() cache.Stats { return r.cache.Stat() }

// Get returns the story by its key.
func (r *REST) Get(ctx context.Context, key string) (Record, error) {
	key = Slugify(key)
	if key == "" {
		return Record{}, ErrNotFound
	}

	env, status, err := r.request(ctx, "/distinguished-alumni/"+url.PathEscape(key))
	if err != nil {
		return Record{}, &FetchError{Source: "rest", Err: err}
	}

	switch {
	case status == http.StatusNotFound:
		return lookup(ctx, r.List, key)
	case !ok(status):
		return Record{}, &FetchError{Source: "rest", Err: fmt.Errorf("bad status code: %d %s", status, env.message())}
	case env.message() != "":
		return Record{}, &FetchError{Source: "rest", Err: errors.New(env.message())}
	case isNull(env.Data):
		return lookup(ctx, r.List, key)
	}

	var raw RawRecord
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return Record{}, &FetchError{Source: "rest", Err: fmt.Errorf("unmarshal story: %w", err)}
	}

	rec := r.norm.Normalize(raw)
	if rec.Key == "" {
		rec.Key = key
	}

	return rec, nil
}

// List returns all published stories.
func (r *REST) List(ctx context.Context, req ListRequest) ([]Record, error) {
	if recs, found := r.cache.Get(listCacheKey); found && r.ttl > 0 {
		return req.apply(recs), nil
	}

	env, status, err := r.request(ctx, "/distinguished-alumni")
	if err != nil {
		return nil, &FetchError{Source: "rest", Err: err}
	}

	switch {
	case !ok(status):
		return nil, &FetchError{Source: "rest", Err: fmt.Errorf("bad status code: %d %s", status, env.message())}
	case env.message() != "":
		return nil, &FetchError{Source: "rest", Err: errors.New(env.message())}
	}

	var raws []RawRecord
	if !isNull(env.Data) {
		if err := json.Unmarshal(env.Data, &raws); err != nil {
			return nil, &FetchError{Source: "rest", Err: fmt.Errorf("unmarshal stories: %w", err)}
		}
	}

	recs := r.norm.normalizeAll(raws)
	if r.ttl > 0 {
		r.cache.Set(listCacheKey, recs, r.ttl)
	}

	return req.apply(recs), nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error json.RawMessage `json:"error"`
}

// message returns the envelope error as text, empty if there is none.
func (e envelope) message() string {
	if isNull(e.Error) {
		return ""
	}
	if s, ok := scalar(e.Error); ok {
		return s
	}
	return string(e.Error)
}

func (r *REST) request(ctx context.Context, endpoint string) (env envelope, status int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+endpoint, http.NoBody)
	if err != nil {
		return envelope{}, 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := r.rq.Do(req)
	if err != nil {
		return envelope{}, 0, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			r.log.WarnContext(ctx, "failed to close response body", slog.Any("err", err))
		}
	}()

	// error responses may come without a JSON body, the status tells enough then
	if err = json.NewDecoder(resp.Body).Decode(&env); err != nil && ok(resp.StatusCode) {
		return envelope{}, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}

	return env, resp.StatusCode, nil
}

func ok(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

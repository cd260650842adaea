package store

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestREST(t *testing.T, ttl time.Duration, h http.HandlerFunc) *REST {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return NewREST(slog.Default(), *ts.Client(), ts.URL+"/api/external/", testNorm, ttl)
}

func TestREST_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		src := newTestREST(t, 0, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/external/distinguished-alumni/jane-doe", r.URL.Path)
			assert.Equal(t, http.MethodGet, r.Method)
			_, err := w.Write([]byte(`{"data": {"slug": "jane-doe", "name": "Jane Doe",
				"tags": "[\"Health\"]", "image": "jane.jpg"}, "error": null}`))
			require.NoError(t, err)
		})

		rec, err := src.Get(context.Background(), "Jane Doe")
		require.NoError(t, err)
		assert.Equal(t, "jane-doe", rec.Key)
		assert.Equal(t, "Jane Doe", rec.Title)
		assert.Equal(t, []string{"Health"}, rec.Tags)
		assert.Equal(t, "https://cdn.example.com/images/jane.jpg", rec.Media)
	})

	t.Run("record without key keeps the requested one", func(t *testing.T) {
		src := newTestREST(t, 0, func(w http.ResponseWriter, _ *http.Request) {
			_, err := w.Write([]byte(`{"data": {"role": "CTO"}}`))
			require.NoError(t, err)
		})

		rec, err := src.Get(context.Background(), "ghost")
		require.NoError(t, err)
		assert.Equal(t, "ghost", rec.Key)
		assert.Equal(t, "CTO", rec.Role)
	})

	t.Run("404", func(t *testing.T) {
		src := newTestREST(t, 0, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/external/distinguished-alumni" {
				_, err := w.Write([]byte(`{"data": [{"slug": "a"}]}`))
				require.NoError(t, err)
				return
			}
			w.WriteHeader(http.StatusNotFound)
			_, err := w.Write([]byte(`not found`))
			require.NoError(t, err)
		})

		_, err := src.Get(context.Background(), "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("null data", func(t *testing.T) {
		src := newTestREST(t, 0, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/external/distinguished-alumni" {
				_, err := w.Write([]byte(`{"data": []}`))
				require.NoError(t, err)
				return
			}
			_, err := w.Write([]byte(`{"data": null, "error": null}`))
			require.NoError(t, err)
		})

		_, err := src.Get(context.Background(), "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("key derived from the name", func(t *testing.T) {
		var listCalls int32
		src := newTestREST(t, time.Minute, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/external/distinguished-alumni" {
				atomic.AddInt32(&listCalls, 1)
				_, err := w.Write([]byte(`{"data": [
					{"slug": null, "name": "Ann Lee", "role": "CFO"},
					{"slug": "Acme Co", "name": "Acme"}
				]}`))
				require.NoError(t, err)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		})

		recs, err := src.List(context.Background(), ListRequest{})
		require.NoError(t, err)
		require.Equal(t, []string{"ann-lee", "acme-co"}, keys(recs))

		// every listed key is reachable, the list comes from the cache
		for _, key := range []string{"ann-lee", "acme-co"} {
			rec, err := src.Get(context.Background(), key)
			require.NoError(t, err, key)
			assert.Equal(t, key, rec.Key)
		}
		assert.Equal(t, int32(1), atomic.LoadInt32(&listCalls))

		rec, err := src.Get(context.Background(), "ann-lee")
		require.NoError(t, err)
		assert.Equal(t, "CFO", rec.Role)
	})

	t.Run("lookup failed", func(t *testing.T) {
		src := newTestREST(t, 0, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/external/distinguished-alumni" {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := src.Get(context.Background(), "ghost")
		assert.ErrorIs(t, err, ErrFetchFailed)
	})

	t.Run("empty key", func(t *testing.T) {
		src := newTestREST(t, 0, func(http.ResponseWriter, *http.Request) {
			t.Fatal("must not be requested")
		})

		_, err := src.Get(context.Background(), "!!!")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		src := newTestREST(t, 0, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := src.Get(context.Background(), "jane")
		assert.ErrorIs(t, err, ErrFetchFailed)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("error in envelope", func(t *testing.T) {
		src := newTestREST(t, 0, func(w http.ResponseWriter, _ *http.Request) {
			_, err := w.Write([]byte(`{"data": null, "error": "database is down"}`))
			require.NoError(t, err)
		})

		_, err := src.Get(context.Background(), "jane")
		require.ErrorIs(t, err, ErrFetchFailed)
		assert.Contains(t, err.Error(), "database is down")
	})

	t.Run("garbage body", func(t *testing.T) {
		src := newTestREST(t, 0, func(w http.ResponseWriter, _ *http.Request) {
			_, err := w.Write([]byte(`<html>`))
			require.NoError(t, err)
		})

		_, err := src.Get(context.Background(), "jane")
		assert.ErrorIs(t, err, ErrFetchFailed)
	})
}

func TestREST_List(t *testing.T) {
	const body = `{"data": [
		{"slug": "a", "name": "A"},
		{"slug": "b", "name": "B"},
		{"name": "C"},
		{"slug": "a", "name": "duplicate"}
	]}`

	t.Run("filters", func(t *testing.T) {
		src := newTestREST(t, 0, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/external/distinguished-alumni", r.URL.Path)
			_, err := w.Write([]byte(body))
			require.NoError(t, err)
		})

		recs, err := src.List(context.Background(), ListRequest{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, keys(recs))

		recs, err = src.List(context.Background(), ListRequest{ExcludeKey: "b", Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, keys(recs))
	})

	t.Run("null data", func(t *testing.T) {
		src := newTestREST(t, 0, func(w http.ResponseWriter, _ *http.Request) {
			_, err := w.Write([]byte(`{"data": null}`))
			require.NoError(t, err)
		})

		recs, err := src.List(context.Background(), ListRequest{})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("not an array", func(t *testing.T) {
		src := newTestREST(t, 0, func(w http.ResponseWriter, _ *http.Request) {
			_, err := w.Write([]byte(`{"data": {"slug": "a"}}`))
			require.NoError(t, err)
		})

		_, err := src.List(context.Background(), ListRequest{})
		assert.ErrorIs(t, err, ErrFetchFailed)
	})

	t.Run("bad status", func(t *testing.T) {
		src := newTestREST(t, 0, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := src.List(context.Background(), ListRequest{})
		assert.ErrorIs(t, err, ErrFetchFailed)
	})

	t.Run("unreachable", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		src := NewREST(slog.Default(), http.Client{Timeout: time.Second}, ts.URL, testNorm, 0)
		_, err := src.List(context.Background(), ListRequest{})

		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "rest", fe.Source)
	})

	t.Run("cached", func(t *testing.T) {
		var calls int32
		src := newTestREST(t, time.Minute, func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&calls, 1)
			_, err := w.Write([]byte(body))
			require.NoError(t, err)
		})

		for i := 0; i < 3; i++ {
			recs, err := src.List(context.Background(), ListRequest{ExcludeKey: "a"})
			require.NoError(t, err)
			assert.Equal(t, []string{"b", "c"}, keys(recs))
		}

		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		assert.Equal(t, 2, src.CacheStat().Hits)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		var calls int32
		src := newTestREST(t, time.Minute, func(w http.ResponseWriter, _ *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, err := w.Write([]byte(body))
			require.NoError(t, err)
		})

		_, err := src.List(context.Background(), ListRequest{})
		require.ErrorIs(t, err, ErrFetchFailed)

		recs, err := src.List(context.Background(), ListRequest{})
		require.NoError(t, err)
		assert.Len(t, recs, 3)
	})
}

func keys(recs []Record) []string {
	res := make([]string, 0, len(recs))
	for _, rec := range recs {
		res = append(res, rec.Key)
	}
	return res
}

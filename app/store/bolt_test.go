package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prepBolt(t *testing.T) *Bolt {
	t.Helper()

	b, err := NewBolt(filepath.Join(t.TempDir(), "stories.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, b.Close()) })

	return b
}

func TestBolt_Replace(t *testing.T) {
	b := prepBolt(t)
	ctx := context.Background()

	recs, err := b.List(ctx, ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, recs)

	// order must survive, even though the keys are not sorted
	require.NoError(t, b.Replace(ctx, []Record{
		{Key: "zed", Title: "Zed", Tags: []string{"x"}},
		{Key: "alpha", Title: "Alpha"},
		{Key: "mid", Title: "Mid"},
	}))

	recs, err = b.List(ctx, ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"zed", "alpha", "mid"}, keys(recs))
	assert.Equal(t, []string{"x"}, recs[0].Tags)

	require.NoError(t, b.Replace(ctx, []Record{{Key: "only"}}))

	recs, err = b.List(ctx, ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, keys(recs))

	_, err = b.Get(ctx, "zed")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBolt_Get(t *testing.T) {
	b := prepBolt(t)
	ctx := context.Background()

	require.NoError(t, b.Replace(ctx, []Record{
		{Key: "jane-doe", Title: "Jane Doe", Metrics: []Metric{{Value: "1", Label: "one"}}},
	}))

	rec, err := b.Get(ctx, "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, Record{Key: "jane-doe", Title: "Jane Doe", Metrics: []Metric{{Value: "1", Label: "one"}}}, rec)

	_, err = b.Get(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBolt_List(t *testing.T) {
	b := prepBolt(t)
	ctx := context.Background()

	require.NoError(t, b.Replace(ctx, []Record{{Key: "a"}, {Key: "b"}, {Key: "c"}, {Key: "d"}}))

	recs, err := b.List(ctx, ListRequest{ExcludeKey: "b", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, keys(recs))
}

func TestBolt_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.db")
	ctx := context.Background()

	b, err := NewBolt(path)
	require.NoError(t, err)
	require.NoError(t, b.Replace(ctx, []Record{{Key: "kept"}}))
	require.NoError(t, b.Close())

	b, err = NewBolt(path)
	require.NoError(t, err)
	defer b.Close()

	recs, err := b.List(ctx, ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, keys(recs))
}

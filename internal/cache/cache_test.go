// internal/cache/cache_test.go
package cache

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*Cache, *MemoryStore, *time.Time) {
	t.Helper()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(store, logger, WithClock(func() time.Time { return now }))
	return c, store, &now
}

func TestCache_GetSet(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a fresh entry", func(t *testing.T) {
		c, _, now := newTestCache(t)
		require.NoError(t, c.Set(ctx, "k", payload{Name: "a", Count: 2}))

		*now = now.Add(59 * time.Minute)
		var got payload
		assert.True(t, c.Get(ctx, "k", time.Hour, &got))
		assert.Equal(t, payload{Name: "a", Count: 2}, got)
	})

	t.Run("misses on absent key", func(t *testing.T) {
		c, _, _ := newTestCache(t)
		var got payload
		assert.False(t, c.Get(ctx, "missing", time.Hour, &got))
	})

	t.Run("expires exactly at the ttl boundary", func(t *testing.T) {
		c, store, now := newTestCache(t)
		require.NoError(t, c.Set(ctx, "k", payload{Name: "a"}))

		*now = now.Add(time.Hour - time.Millisecond)
		var got payload
		assert.True(t, c.Get(ctx, "k", time.Hour, &got))

		*now = now.Add(time.Millisecond)
		assert.False(t, c.Get(ctx, "k", time.Hour, &got))
		assert.Equal(t, 1, store.Len(), "expired entry is left for the next write")

		require.NoError(t, c.Set(ctx, "k", payload{Name: "b"}))
		assert.True(t, c.Get(ctx, "k", time.Hour, &got))
		assert.Equal(t, "b", got.Name)
	})

	t.Run("expired read does not remove a concurrent write", func(t *testing.T) {
		c, store, now := newTestCache(t)
		require.NoError(t, c.Set(ctx, "k", payload{Name: "old"}))
		stale, err := store.Get(ctx, "k")
		require.NoError(t, err)

		*now = now.Add(2 * time.Hour)
		require.NoError(t, c.Set(ctx, "k", payload{Name: "new"}))

		// The reader saw the old bytes before the write landed.
		reader := New(staleStore{Store: store, raw: stale}, slog.New(slog.NewTextHandler(io.Discard, nil)), WithClock(func() time.Time { return *now }))
		var got payload
		assert.False(t, reader.Get(ctx, "k", time.Hour, &got))

		assert.True(t, c.Get(ctx, "k", time.Hour, &got))
		assert.Equal(t, "new", got.Name)
	})

	t.Run("treats corrupt entries as misses and removes them", func(t *testing.T) {
		c, store, _ := newTestCache(t)
		for _, raw := range []string{`not json`, `{"timestamp": 1}`, `{"timestamp": 1, "data": null}`} {
			require.NoError(t, store.Set(ctx, "k", []byte(raw)))
			var got payload
			assert.False(t, c.Get(ctx, "k", time.Hour, &got), raw)
			assert.Equal(t, 0, store.Len(), raw)
		}
	})

	t.Run("treats a payload of the wrong shape as a miss", func(t *testing.T) {
		c, store, now := newTestCache(t)
		raw := `{"timestamp": ` + itoa(now.UnixMilli()) + `, "data": [1, 2, 3]}`
		require.NoError(t, store.Set(ctx, "k", []byte(raw)))

		var got payload
		assert.False(t, c.Get(ctx, "k", time.Hour, &got))
	})

	t.Run("writes the documented envelope", func(t *testing.T) {
		c, store, now := newTestCache(t)
		require.NoError(t, c.Set(ctx, Key("github_stats_v2", "octocat"), payload{Name: "x", Count: 1}))

		raw, err := store.Get(ctx, "github_stats_v2_octocat")
		require.NoError(t, err)
		assert.JSONEq(t, `{"timestamp": `+itoa(now.UnixMilli())+`, "data": {"name": "x", "count": 1}}`, string(raw))
	})

	t.Run("last write wins", func(t *testing.T) {
		c, _, _ := newTestCache(t)
		require.NoError(t, c.Set(ctx, "k", payload{Count: 1}))
		require.NoError(t, c.Set(ctx, "k", payload{Count: 2}))

		var got payload
		require.True(t, c.Get(ctx, "k", time.Hour, &got))
		assert.Equal(t, 2, got.Count)
	})
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(ctx, "github_projects_octocat")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "github_projects_octocat", []byte(`{"a":1}`)))
	got, err := store.Get(ctx, "github_projects_octocat")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, store.Set(ctx, "github_projects_octocat", []byte(`{"a":2}`)))
	got, err = store.Get(ctx, "github_projects_octocat")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(got))

	require.NoError(t, store.Delete(ctx, "github_projects_octocat"))
	require.NoError(t, store.Delete(ctx, "github_projects_octocat"), "deleting twice is not an error")
	_, err = store.Get(ctx, "github_projects_octocat")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCache_FileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, New(first, logger).Set(ctx, "k", payload{Name: "persisted"}))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	var got payload
	require.True(t, New(second, logger).Get(ctx, "k", time.Hour, &got))
	assert.Equal(t, "persisted", got.Name)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// staleStore serves a fixed snapshot on Get and passes writes through.
type staleStore struct {
	Store
	raw []byte
}

func (s staleStore) Get(context.Context, string) ([]byte, error) { return s.raw, nil }

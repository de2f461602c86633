//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/movienighthub/movienight/internal/cache"
	"github.com/movienighthub/movienight/internal/config"
	"github.com/movienighthub/movienight/internal/core"
	"github.com/stretchr/testify/require"
)

func openMemoryStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   ":memory:",
	}

	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.Close())
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := openMemoryStore(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	_, ok, err := store.Get(ctx, cache.NamespaceEnrichment, "arrival")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, cache.NamespaceEnrichment, "arrival", []byte(`{"genre":"Sci-Fi"}`), time.Hour))
	require.NoError(t, store.Set(ctx, cache.NamespaceTMDB, "arrival|2016", []byte(`{}`), time.Hour))

	value, ok, err := store.Get(ctx, cache.NamespaceEnrichment, "arrival")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"genre":"Sci-Fi"}`, string(value))

	entries, err := store.List(ctx, cache.NamespaceEnrichment)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "arrival", entries[0].Key)
	require.EqualValues(t, 1, entries[0].Hits)
	require.Equal(t, now, entries[0].CreatedAt)
	require.Equal(t, now.Add(time.Hour), entries[0].ExpiresAt)

	now = now.Add(2 * time.Hour)

	_, ok, err = store.Get(ctx, cache.NamespaceEnrichment, "arrival")
	require.NoError(t, err)
	require.False(t, ok)

	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, purged)
}

func TestCacheResetByNamespace(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	require.NoError(t, store.Set(ctx, cache.NamespaceEnrichment, "heat", []byte("a"), time.Hour))
	require.NoError(t, store.Set(ctx, cache.NamespaceOMDB, "heat|1995", []byte("b"), time.Hour))
	require.NoError(t, store.Set(ctx, cache.NamespaceOMDB, "ignored", []byte("c"), 0))

	deleted, err := store.Reset(ctx, cache.NamespaceOMDB)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, cache.NamespaceEnrichment, all[0].Namespace)

	deleted, err = store.Reset(ctx, "")
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}

func TestRateLimitPersistence(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	missing, err := store.GetRateLimit(ctx, "api.themoviedb.org")
	require.NoError(t, err)
	require.Nil(t, missing)

	window := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	backoff := window.Add(time.Minute)
	require.NoError(t, store.UpdateRateLimit(ctx, "api.themoviedb.org", &core.RateLimitState{
		RequestCount: 7,
		WindowStart:  window,
		BackoffUntil: &backoff,
		Last429At:    &window,
	}))
	require.NoError(t, store.UpdateRateLimit(ctx, "www.omdbapi.com", &core.RateLimitState{RequestCount: 1, WindowStart: window}))

	state, err := store.GetRateLimit(ctx, "api.themoviedb.org")
	require.NoError(t, err)
	require.Equal(t, 7, state.RequestCount)
	require.Equal(t, backoff, *state.BackoffUntil)

	entries, err := store.ListRateLimits(ctx, RateLimitQuery{Prefix: "api."})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	count, err := store.CountRateLimits(ctx, RateLimitQuery{All: true})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	deleted, err := store.ResetRateLimits(ctx, RateLimitQuery{Endpoint: "www.omdbapi.com"})
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	_, err = store.ListRateLimits(ctx, RateLimitQuery{})
	require.Error(t, err)
}

func TestOpenFileStoreUsesWALAndMigrates(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.StoreConfig{
		Driver: "libsql",
		Path:   "file:" + t.TempDir() + "/movienight.db",
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	// One writer connection; WAL lets `serve` and CLI commands share the file.
	require.Equal(t, 1, store.DB.Stats().MaxOpenConnections)

	var journalMode string
	require.NoError(t, store.DB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode))
	require.Contains(t, journalMode, "wal")

	var busyTimeout int
	require.NoError(t, store.DB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout))
	require.GreaterOrEqual(t, busyTimeout, 1000)

	for _, table := range []string{"cache_entries", "rate_limits"} {
		var name string
		require.NoError(t, store.DB.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name), table)
	}
}

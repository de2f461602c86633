package cache

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewRedis(client, "test", func() time.Time { return now }), server
}

func TestRedisGetMiss(t *testing.T) {
	backend, _ := newTestRedis(t)

	value, ok, err := backend.Get(context.Background(), NamespaceEnrichment, "arrival")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestRedisSetGetExpire(t *testing.T) {
	backend, server := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, NamespaceEnrichment, "arrival", []byte(`{"genre":"Sci-Fi"}`), time.Hour))

	value, ok, err := backend.Get(ctx, NamespaceEnrichment, "arrival")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"genre":"Sci-Fi"}`, string(value))
	assert.Equal(t, "1", server.HGet("test:enrichment:arrival", "hits"))

	server.FastForward(time.Hour + time.Second)

	_, ok, err = backend.Get(ctx, NamespaceEnrichment, "arrival")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSetIgnoresNonPositiveTTL(t *testing.T) {
	backend, server := newTestRedis(t)

	require.NoError(t, backend.Set(context.Background(), NamespaceTMDB, "x", []byte("v"), 0))
	assert.Empty(t, server.Keys())
}

func TestRedisListAndReset(t *testing.T) {
	backend, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, NamespaceEnrichment, "arrival", []byte("a"), time.Hour))
	require.NoError(t, backend.Set(ctx, NamespaceEnrichment, "heat", []byte("b"), time.Hour))
	require.NoError(t, backend.Set(ctx, NamespaceTMDB, "heat|1995", []byte("c"), time.Hour))

	entries, err := backend.List(ctx, NamespaceEnrichment)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	keys := []string{entries[0].Key, entries[1].Key}
	sort.Strings(keys)
	assert.Equal(t, []string{"arrival", "heat"}, keys)
	assert.Equal(t, NamespaceEnrichment, entries[0].Namespace)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), entries[0].CreatedAt)
	assert.Equal(t, time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC), entries[0].ExpiresAt)

	all, err := backend.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	deleted, err := backend.Reset(ctx, NamespaceEnrichment)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	remaining, err := backend.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "heat|1995", remaining[0].Key)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "the matrix", Key("  The   Matrix "))
	assert.Equal(t, "cold war|2018", Key("Cold War", "2018"))
	assert.Equal(t, "heat", Key("Heat", " "))
}

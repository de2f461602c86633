// Package cache defines the TTL cache used for enrichment and metadata
// responses. The libsql store and Redis both implement Backend.
package cache

import (
	"context"
	"strings"
	"time"
)

// Namespaces partition cached values by producer.
const (
	NamespaceEnrichment = "enrichment"
	NamespaceTMDB       = "tmdb"
	NamespaceOMDB       = "omdb"
)

// Entry is a cached value with its lifetime.
type Entry struct {
	Namespace string
	Key       string
	Value     []byte
	Hits      int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Backend stores opaque values under namespace/key with a TTL. Get reports a
// miss with ok=false and a nil error; expired entries are misses.
type Backend interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	List(ctx context.Context, namespace string) ([]Entry, error)
	Reset(ctx context.Context, namespace string) (int64, error)
}

// Key normalizes free text (usually a movie title) into a cache key.
func Key(parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(strings.ToLower(part))
		if len(fields) == 0 {
			continue
		}
		normalized = append(normalized, strings.Join(fields, " "))
	}
	return strings.Join(normalized, "|")
}

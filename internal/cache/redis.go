package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldValue     = "value"
	fieldCreatedAt = "created_at"
	fieldHits      = "hits"

	ttlKeyMissing  = -2
	ttlNoExpiry    = -1
	defaultPrefix  = "movienight"
	scanBatchCount = 100
)

// getScript reads the value and bumps the hit counter without recreating a
// key that expired in between.
var getScript = redis.NewScript(`
local v = redis.call('HGET', KEYS[1], 'value')
if not v then return false end
redis.call('HINCRBY', KEYS[1], 'hits', 1)
return v
`)

// Redis is a Backend on a shared Redis instance. Each entry is a hash holding
// the value and creation time; Redis expiry enforces the TTL.
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedis wraps client. Keys are written as prefix:namespace:key.
func NewRedis(client *redis.Client, prefix string, now func() time.Time) *Redis {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Redis{client: client, prefix: prefix, now: now}
}

// Get returns a live entry value.
func (r *Redis) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	raw, err := getScript.Run(ctx, r.client, []string{r.key(namespace, key)}).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis cache get %s/%s: %w", namespace, key, err)
	}
	return []byte(raw), true, nil
}

// Set stores value for ttl. A non-positive ttl is a no-op.
func (r *Redis) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	redisKey := r.key(namespace, key)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, redisKey)
	pipe.HSet(ctx, redisKey, fieldValue, value, fieldCreatedAt, r.now().Unix())
	pipe.Expire(ctx, redisKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis cache set %s/%s: %w", namespace, key, err)
	}
	return nil
}

// List returns entries in namespace, or all namespaces when it is empty.
func (r *Redis) List(ctx context.Context, namespace string) ([]Entry, error) {
	keys, err := r.scan(ctx, namespace)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(keys))
	for _, redisKey := range keys {
		pipe := r.client.Pipeline()
		fieldsCmd := pipe.HGetAll(ctx, redisKey)
		ttlCmd := pipe.TTL(ctx, redisKey)
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redis cache list %s: %w", redisKey, err)
		}

		fields := fieldsCmd.Val()
		if len(fields) == 0 {
			// Expired between SCAN and HGETALL.
			continue
		}

		ns, key := r.split(redisKey)
		entry := Entry{Namespace: ns, Key: key, Value: []byte(fields[fieldValue])}
		if hits, err := strconv.ParseInt(fields[fieldHits], 10, 64); err == nil {
			entry.Hits = hits
		}
		if created, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64); err == nil {
			entry.CreatedAt = time.Unix(created, 0).UTC()
		}
		if ttl := ttlCmd.Val(); ttl != ttlKeyMissing && ttl != ttlNoExpiry && ttl > 0 {
			entry.ExpiresAt = r.now().Add(ttl)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Reset deletes entries in namespace, or every entry under the prefix.
func (r *Redis) Reset(ctx context.Context, namespace string) (int64, error) {
	keys, err := r.scan(ctx, namespace)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	deleted, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis cache reset: %w", err)
	}
	return deleted, nil
}

func (r *Redis) scan(ctx context.Context, namespace string) ([]string, error) {
	pattern := r.prefix + ":*"
	if ns := strings.TrimSpace(namespace); ns != "" {
		pattern = r.prefix + ":" + ns + ":*"
	}

	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, scanBatchCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis cache scan %s: %w", pattern, err)
	}
	return keys, nil
}

func (r *Redis) key(namespace, key string) string {
	return r.prefix + ":" + namespace + ":" + key
}

func (r *Redis) split(redisKey string) (string, string) {
	rest := strings.TrimPrefix(redisKey, r.prefix+":")
	ns, key, _ := strings.Cut(rest, ":")
	return ns, key
}

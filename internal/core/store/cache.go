package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/movienighthub/movienight/internal/cache"
)

var _ cache.Backend = (*Store)(nil)

// Get returns a cached value if it is still valid and counts the hit.
func (s *Store) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	if s == nil || s.DB == nil {
		return nil, false, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	namespace, key, err := cacheKey(namespace, key)
	if err != nil {
		return nil, false, err
	}

	var value []byte
	row := s.DB.QueryRowContext(ctx, `
		SELECT value
		FROM cache_entries
		WHERE namespace = ? AND key = ? AND expires_at > ?
	`, namespace, key, s.now().Unix())

	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fetch cached value: %w", err)
	}

	if _, err := s.DB.ExecContext(ctx, `
		UPDATE cache_entries SET hits = hits + 1 WHERE namespace = ? AND key = ?
	`, namespace, key); err != nil {
		return nil, false, fmt.Errorf("record cache hit: %w", err)
	}

	return value, true, nil
}

// Set stores a value with a TTL. A non-positive TTL disables caching.
func (s *Store) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if ttl <= 0 {
		return nil
	}

	namespace, key, err := cacheKey(namespace, key)
	if err != nil {
		return err
	}

	now := s.now()
	expires := now.Add(ttl)

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO cache_entries (namespace, key, value, created_at, expires_at, hits)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(namespace, key) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			hits = 0
	`, namespace, key, value, now.Unix(), expires.Unix())
	if err != nil {
		return fmt.Errorf("store cached value: %w", err)
	}

	return nil
}

// List returns live entries in namespace, or in every namespace when it is
// empty.
func (s *Store) List(ctx context.Context, namespace string) ([]cache.Entry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args := namespaceClause(namespace)
	args = append([]any{s.now().Unix()}, args...)

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT namespace, key, value, hits, created_at, expires_at
		FROM cache_entries
		WHERE expires_at > ? %s
		ORDER BY namespace, key
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []cache.Entry{}
	for rows.Next() {
		var (
			entry     cache.Entry
			createdAt int64
			expiresAt int64
		)
		if err := rows.Scan(&entry.Namespace, &entry.Key, &entry.Value, &entry.Hits, &createdAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan cache entries: %w", err)
		}
		entry.CreatedAt = time.Unix(createdAt, 0).UTC()
		entry.ExpiresAt = time.Unix(expiresAt, 0).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}

	return entries, nil
}

// Reset deletes entries in namespace (all namespaces when empty), expired
// or not.
func (s *Store) Reset(ctx context.Context, namespace string) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args := namespaceClause(namespace)
	if where != "" {
		where = "WHERE " + strings.TrimPrefix(where, "AND ")
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM cache_entries
		%s
	`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("reset cache: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset cache: %w", err)
	}
	return affected, nil
}

// PurgeExpired removes entries whose TTL has elapsed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return affected, nil
}

func cacheKey(namespace, key string) (string, string, error) {
	namespace = strings.TrimSpace(namespace)
	key = strings.TrimSpace(key)
	if namespace == "" {
		return "", "", errors.New("cache namespace is required")
	}
	if key == "" {
		return "", "", errors.New("cache key is required")
	}
	return namespace, key, nil
}

func namespaceClause(namespace string) (string, []any) {
	if ns := strings.TrimSpace(namespace); ns != "" {
		return "AND namespace = ?", []any{ns}
	}
	return "", nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/courseforge/courseforge/pkg/cache"
	"github.com/courseforge/courseforge/pkg/models"
)

// Store is a generation cache backed by SQLite.
type Store struct {
	db *sql.DB
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS generation_cache (
	cache_key TEXT PRIMARY KEY,
	function_name TEXT NOT NULL,
	request_hash TEXT NOT NULL DEFAULT '',
	response BLOB NOT NULL,
	expires_at INTEGER NOT NULL,
	hit_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generation_cache_expires ON generation_cache(expires_at);
`

// New opens (or creates) the cache database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Store{db: db}, nil
}

// Get retrieves an entry regardless of expiry.
func (s *Store) Get(ctx context.Context, key string) (models.CacheEntry, error) {
	var e models.CacheEntry
	var expiresAt, createdAt int64
	var response []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT cache_key, function_name, request_hash, response, expires_at, hit_count, created_at
		 FROM generation_cache WHERE cache_key = ?`, key,
	).Scan(&e.CacheKey, &e.FunctionName, &e.RequestHash, &response, &expiresAt, &e.HitCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CacheEntry{}, cache.ErrNotFound
	}
	if err != nil {
		return models.CacheEntry{}, fmt.Errorf("cache get: %w", err)
	}

	e.Response = response
	e.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	return e, nil
}

// Upsert stores an entry, replacing any existing one with the same key.
func (s *Store) Upsert(ctx context.Context, e models.CacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_cache (cache_key, function_name, request_hash, response, expires_at, hit_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
			function_name = excluded.function_name,
			request_hash = excluded.request_hash,
			response = excluded.response,
			expires_at = excluded.expires_at,
			hit_count = excluded.hit_count,
			created_at = excluded.created_at`,
		e.CacheKey, e.FunctionName, e.RequestHash, []byte(e.Response),
		e.ExpiresAt.UnixMilli(), e.HitCount, e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("cache upsert: %w", err)
	}
	return nil
}

// IncrementHits bumps the hit counter of an entry.
func (s *Store) IncrementHits(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE generation_cache SET hit_count = hit_count + 1 WHERE cache_key = ?`, key)
	if err != nil {
		return fmt.Errorf("cache increment hits: %w", err)
	}
	return nil
}

// Stats returns entry counts split by liveness and operation.
func (s *Store) Stats(ctx context.Context, now time.Time) (models.CacheStats, error) {
	var stats models.CacheStats
	nowMs := now.UnixMilli()

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN expires_at > ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(hit_count), 0)
		 FROM generation_cache`, nowMs,
	).Scan(&stats.Entries, &stats.Live, &stats.TotalHits)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	stats.Expired = stats.Entries - stats.Live

	rows, err := s.db.QueryContext(ctx,
		`SELECT function_name, COUNT(*) FROM generation_cache GROUP BY function_name`)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats by function: %w", err)
	}
	defer rows.Close()

	stats.ByFunction = make(map[string]int64)
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return models.CacheStats{}, fmt.Errorf("scan cache stat: %w", err)
		}
		stats.ByFunction[name] = count
	}
	return stats, rows.Err()
}

// List returns up to limit entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]models.CacheEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT cache_key, function_name, request_hash, expires_at, hit_count, created_at
		 FROM generation_cache ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("cache list: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		var e models.CacheEntry
		var expiresAt, createdAt int64
		if err := rows.Scan(&e.CacheKey, &e.FunctionName, &e.RequestHash, &expiresAt, &e.HitCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		e.ExpiresAt = time.UnixMilli(expiresAt).UTC()
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune removes entries that expired at or before now.
func (s *Store) Prune(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM generation_cache WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM generation_cache`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

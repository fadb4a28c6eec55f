// Package postgres is a PostgreSQL backend for the generation cache.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/courseforge/courseforge/pkg/cache"
	"github.com/courseforge/courseforge/pkg/models"
)

const createCacheTable = `
CREATE TABLE IF NOT EXISTS generation_cache (
	cache_key TEXT PRIMARY KEY,
	function_name TEXT NOT NULL,
	request_hash TEXT NOT NULL DEFAULT '',
	response JSONB NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	hit_count BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_generation_cache_expires ON generation_cache(expires_at);
`

// Store is a generation cache backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

// New connects to dsn and creates the cache table if needed.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache table: %w", err)
	}
	return &Store{db: db}, nil
}

// Get retrieves an entry regardless of expiry.
func (s *Store) Get(ctx context.Context, key string) (models.CacheEntry, error) {
	var e models.CacheEntry
	var response []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT cache_key, function_name, request_hash, response, expires_at, hit_count, created_at
		 FROM generation_cache WHERE cache_key = $1`, key,
	).Scan(&e.CacheKey, &e.FunctionName, &e.RequestHash, &response, &e.ExpiresAt, &e.HitCount, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CacheEntry{}, cache.ErrNotFound
	}
	if err != nil {
		return models.CacheEntry{}, fmt.Errorf("cache get: %w", err)
	}
	e.Response = response
	return e, nil
}

// Upsert stores an entry, replacing any existing one with the same key.
func (s *Store) Upsert(ctx context.Context, e models.CacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_cache (cache_key, function_name, request_hash, response, expires_at, hit_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (cache_key) DO UPDATE SET
			function_name = EXCLUDED.function_name,
			request_hash = EXCLUDED.request_hash,
			response = EXCLUDED.response,
			expires_at = EXCLUDED.expires_at,
			hit_count = EXCLUDED.hit_count,
			created_at = EXCLUDED.created_at`,
		e.CacheKey, e.FunctionName, e.RequestHash, string(e.Response), e.ExpiresAt, e.HitCount, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("cache upsert: %w", err)
	}
	return nil
}

// IncrementHits bumps the hit counter of an entry.
func (s *Store) IncrementHits(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE generation_cache SET hit_count = hit_count + 1 WHERE cache_key = $1`, key)
	if err != nil {
		return fmt.Errorf("cache increment hits: %w", err)
	}
	return nil
}

// Stats returns entry counts split by liveness and operation.
func (s *Store) Stats(ctx context.Context, now time.Time) (models.CacheStats, error) {
	var stats models.CacheStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE expires_at > $1),
			COALESCE(SUM(hit_count), 0)
		 FROM generation_cache`, now,
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
		 FROM generation_cache ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("cache list: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		var e models.CacheEntry
		if err := rows.Scan(&e.CacheKey, &e.FunctionName, &e.RequestHash, &e.ExpiresAt, &e.HitCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune removes entries that expired at or before now.
func (s *Store) Prune(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM generation_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE generation_cache`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Package cache implements the best-effort response cache used by the
// generation handlers. Backends implement Store; Cache wraps a Store and
// turns every backend failure into a miss or a no-op.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/courseforge/courseforge/pkg/models"
)

// ErrNotFound is returned by a Store when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// hitTimeout bounds the background hit-count update.
const hitTimeout = 5 * time.Second

// Store is a keyed persistence backend for cache entries.
type Store interface {
	Get(ctx context.Context, key string) (models.CacheEntry, error)
	Upsert(ctx context.Context, entry models.CacheEntry) error
	IncrementHits(ctx context.Context, key string) error
	Stats(ctx context.Context, now time.Time) (models.CacheStats, error)
	List(ctx context.Context, limit int) ([]models.CacheEntry, error)
	Prune(ctx context.Context, now time.Time) (int64, error)
	Clear(ctx context.Context) error
	Close() error
}

// Cache enforces expiry on top of a Store and never fails its caller.
// A nil *Cache always misses.
type Cache struct {
	store  Store
	now    func() time.Time
	hits   atomic.Int64
	misses atomic.Int64
	wg     sync.WaitGroup
}

// New wraps store.
func New(store Store) *Cache {
	return &Cache{store: store, now: time.Now}
}

// WithClock replaces the clock used for expiry. Intended for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the stored response for key when it exists and has not expired.
// A hit schedules a hit-count increment in the background.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	if c == nil {
		return nil, false
	}
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("cache lookup failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	if !entry.Live(c.now()) {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), hitTimeout)
		defer cancel()
		if err := c.store.IncrementHits(ctx, key); err != nil {
			slog.Debug("cache hit count update failed", "key", key, "error", err)
		}
	}()
	return entry.Response, true
}

// Set stores response under key for ttl. The previous entry, if any, is
// replaced and its hit count reset.
func (c *Cache) Set(ctx context.Context, key, operation, requestHash string, response any, ttl time.Duration) {
	if c == nil {
		return
	}
	data, err := json.Marshal(response)
	if err != nil {
		slog.Warn("cache encode failed", "key", key, "operation", operation, "error", err)
		return
	}
	now := c.now().UTC()
	entry := models.CacheEntry{
		CacheKey:     key,
		FunctionName: operation,
		RequestHash:  requestHash,
		Response:     data,
		ExpiresAt:    now.Add(ttl),
		HitCount:     0,
		CreatedAt:    now,
	}
	if err := c.store.Upsert(ctx, entry); err != nil {
		slog.Warn("cache write failed", "key", key, "operation", operation, "error", err)
	}
}

// Stats combines stored entry counts with in-process hit and miss counters.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	if c == nil {
		return models.CacheStats{}, nil
	}
	stats, err := c.store.Stats(ctx, c.now())
	if err != nil {
		return models.CacheStats{}, err
	}
	stats.Hits = c.hits.Load()
	stats.Misses = c.misses.Load()
	return stats, nil
}

// List returns up to limit stored entries, newest first.
func (c *Cache) List(ctx context.Context, limit int) ([]models.CacheEntry, error) {
	if c == nil {
		return nil, nil
	}
	return c.store.List(ctx, limit)
}

// Prune deletes expired entries and reports how many were removed.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	if c == nil {
		return 0, nil
	}
	return c.store.Prune(ctx, c.now())
}

// Clear deletes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.store.Clear(ctx)
}

// Wait blocks until background hit-count updates have finished.
func (c *Cache) Wait() {
	if c == nil {
		return
	}
	c.wg.Wait()
}

// Close waits for background work and closes the store.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	c.wg.Wait()
	return c.store.Close()
}

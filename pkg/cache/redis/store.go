// Package redis is a Redis backend for the generation cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/courseforge/courseforge/pkg/cache"
	"github.com/courseforge/courseforge/pkg/models"
)

const (
	entryPrefix = "courseforge:cache:"
	hitsPrefix  = "courseforge:hits:"

	// legacyHitsKey is the single hash older versions kept every counter in.
	legacyHitsKey = "courseforge:hits"

	// Entries outlive their logical expiry by this much so that stats and
	// prune can still see them. The Cache wrapper enforces ExpiresAt.
	expiryGrace = time.Hour
)

// incrementHits bumps the counter in KEYS[2] only while the entry in KEYS[1]
// exists, and gives the counter the entry's remaining lifetime.
var incrementHits = goredis.NewScript(`
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	return 0
end
local n = redis.call('INCR', KEYS[2])
redis.call('PEXPIRE', KEYS[2], ttl)
return n
`)

// Store is a generation cache backed by Redis. Each entry has a separate
// counter key with the same TTL, so increments never rewrite the stored
// payload and counters expire together with their entry.
type Store struct {
	client *goredis.Client
}

// New parses url, connects and pings the server.
func New(ctx context.Context, url string) (*Store, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client) *Store {
	return &Store{client: client}
}

// Get retrieves an entry regardless of logical expiry.
func (s *Store) Get(ctx context.Context, key string) (models.CacheEntry, error) {
	data, err := s.client.Get(ctx, entryPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return models.CacheEntry{}, cache.ErrNotFound
	}
	if err != nil {
		return models.CacheEntry{}, fmt.Errorf("cache get: %w", err)
	}

	var e models.CacheEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return models.CacheEntry{}, fmt.Errorf("decode cache entry: %w", err)
	}

	hits, err := s.client.Get(ctx, hitsPrefix+key).Int64()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return models.CacheEntry{}, fmt.Errorf("cache hit count: %w", err)
	}
	e.HitCount = hits
	return e, nil
}

// Upsert stores an entry and resets its hit counter.
func (s *Store) Upsert(ctx context.Context, e models.CacheEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	ttl := time.Until(e.ExpiresAt) + expiryGrace
	if ttl <= 0 {
		ttl = expiryGrace
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, entryPrefix+e.CacheKey, data, ttl)
	pipe.Set(ctx, hitsPrefix+e.CacheKey, e.HitCount, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache upsert: %w", err)
	}
	return nil
}

// IncrementHits bumps the hit counter of an entry. A missing entry is left
// without a counter.
func (s *Store) IncrementHits(ctx context.Context, key string) error {
	keys := []string{entryPrefix + key, hitsPrefix + key}
	if err := incrementHits.Run(ctx, s.client, keys).Err(); err != nil {
		return fmt.Errorf("cache increment hits: %w", err)
	}
	return nil
}

// Stats scans all entries and aggregates counts.
func (s *Store) Stats(ctx context.Context, now time.Time) (models.CacheStats, error) {
	entries, err := s.scan(ctx)
	if err != nil {
		return models.CacheStats{}, err
	}
	stats := models.CacheStats{ByFunction: make(map[string]int64)}
	for _, e := range entries {
		stats.Entries++
		if e.Live(now) {
			stats.Live++
		}
		stats.TotalHits += e.HitCount
		stats.ByFunction[e.FunctionName]++
	}
	stats.Expired = stats.Entries - stats.Live
	return stats, nil
}

// List returns up to limit entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]models.CacheEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	entries, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Response = nil
	}
	return entries, nil
}

// Prune removes entries that expired at or before now, then any hit counter
// whose entry is gone.
func (s *Store) Prune(ctx context.Context, now time.Time) (int64, error) {
	entries, err := s.scan(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, e := range entries {
		if e.Live(now) {
			continue
		}
		if err := s.delete(ctx, e.CacheKey); err != nil {
			return n, err
		}
		n++
	}
	if err := s.pruneCounters(ctx); err != nil {
		return n, err
	}
	return n, nil
}

func (s *Store) pruneCounters(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, hitsPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		counter := iter.Val()
		exists, err := s.client.Exists(ctx, entryPrefix+counter[len(hitsPrefix):]).Result()
		if err != nil {
			return fmt.Errorf("cache prune counters: %w", err)
		}
		if exists > 0 {
			continue
		}
		if err := s.client.Del(ctx, counter).Err(); err != nil {
			return fmt.Errorf("cache prune counters: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache prune counters: %w", err)
	}
	if err := s.client.Del(ctx, legacyHitsKey).Err(); err != nil {
		return fmt.Errorf("cache prune counters: %w", err)
	}
	return nil
}

// Clear removes all entries and counters.
func (s *Store) Clear(ctx context.Context) error {
	for _, pattern := range []string{entryPrefix + "*", hitsPrefix + "*"} {
		iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
				return fmt.Errorf("cache clear: %w", err)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("cache clear: %w", err)
		}
	}
	if err := s.client.Del(ctx, legacyHitsKey).Err(); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) delete(ctx context.Context, key string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, entryPrefix+key, hitsPrefix+key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (s *Store) scan(ctx context.Context) ([]models.CacheEntry, error) {
	var entries []models.CacheEntry
	iter := s.client.Scan(ctx, 0, entryPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()[len(entryPrefix):]
		e, err := s.Get(ctx, key)
		if errors.Is(err, cache.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("cache scan: %w", err)
	}
	return entries, nil
}

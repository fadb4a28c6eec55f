// Package cachetest checks a cache.Store backend against the behaviour the
// cache wrapper relies on. Backend packages call Run from their tests.
package cachetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/courseforge/courseforge/pkg/cache"
	"github.com/courseforge/courseforge/pkg/models"
)

// Entry builds a cache entry. Payloads are JSON strings so that backends
// which normalize JSON still return them byte for byte.
func Entry(key, fn, payload string, expires, created time.Time) models.CacheEntry {
	data, _ := json.Marshal(payload)
	return models.CacheEntry{
		CacheKey:     key,
		FunctionName: fn,
		RequestHash:  "rh-" + key,
		Response:     data,
		ExpiresAt:    expires,
		CreatedAt:    created,
	}
}

// Run runs the contract against stores returned by newStore. Each call must
// return an empty store that is closed by the test's cleanup.
func Run(t *testing.T, newStore func(t *testing.T) cache.Store) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(ctx, "nope"); !errors.Is(err, cache.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := Entry("k1", models.OpSlides, "deck", now.Add(time.Hour), now)
		if err := s.Upsert(ctx, want); err != nil {
			t.Fatal(err)
		}
		got, err := s.Get(ctx, "k1")
		if err != nil {
			t.Fatal(err)
		}
		if string(got.Response) != string(want.Response) {
			t.Errorf("expected response %s, got %s", want.Response, got.Response)
		}
		if got.FunctionName != models.OpSlides || got.RequestHash != "rh-k1" {
			t.Errorf("unexpected entry %+v", got)
		}
		if !got.ExpiresAt.Equal(want.ExpiresAt) || !got.CreatedAt.Equal(want.CreatedAt) {
			t.Errorf("expected times %v/%v, got %v/%v", want.ExpiresAt, want.CreatedAt, got.ExpiresAt, got.CreatedAt)
		}
		if got.HitCount != 0 {
			t.Errorf("expected 0 hits, got %d", got.HitCount)
		}
	})

	t.Run("LastWriterWins", func(t *testing.T) {
		s := newStore(t)
		_ = s.Upsert(ctx, Entry("k1", "op", "first", now.Add(time.Hour), now))
		_ = s.IncrementHits(ctx, "k1")
		_ = s.IncrementHits(ctx, "k1")
		if err := s.Upsert(ctx, Entry("k1", "op", "second", now.Add(2*time.Hour), now)); err != nil {
			t.Fatal(err)
		}
		got, err := s.Get(ctx, "k1")
		if err != nil {
			t.Fatal(err)
		}
		if string(got.Response) != `"second"` {
			t.Errorf("expected second write to win, got %s", got.Response)
		}
		if got.HitCount != 0 {
			t.Errorf("expected hit count reset, got %d", got.HitCount)
		}
	})

	t.Run("IncrementHits", func(t *testing.T) {
		s := newStore(t)
		_ = s.Upsert(ctx, Entry("k1", "op", "x", now.Add(time.Hour), now))
		for i := 0; i < 3; i++ {
			if err := s.IncrementHits(ctx, "k1"); err != nil {
				t.Fatal(err)
			}
		}
		got, err := s.Get(ctx, "k1")
		if err != nil {
			t.Fatal(err)
		}
		if got.HitCount != 3 {
			t.Errorf("expected 3 hits, got %d", got.HitCount)
		}
	})

	t.Run("IncrementMissing", func(t *testing.T) {
		s := newStore(t)
		if err := s.IncrementHits(ctx, "ghost"); err != nil {
			t.Fatalf("expected no error for a missing entry, got %v", err)
		}
		if _, err := s.Get(ctx, "ghost"); !errors.Is(err, cache.ErrNotFound) {
			t.Errorf("expected increment not to create an entry, got %v", err)
		}
		stats, err := s.Stats(ctx, now)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Entries != 0 || stats.TotalHits != 0 {
			t.Errorf("expected empty stats, got %+v", stats)
		}
	})

	t.Run("StatsAndPrune", func(t *testing.T) {
		s := newStore(t)
		_ = s.Upsert(ctx, Entry("live", models.OpSlides, "a", now.Add(time.Hour), now))
		_ = s.Upsert(ctx, Entry("dead", models.OpExercises, "b", now.Add(-30*time.Minute), now.Add(-time.Hour)))
		_ = s.IncrementHits(ctx, "live")
		_ = s.IncrementHits(ctx, "dead")

		stats, err := s.Stats(ctx, now)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Entries != 2 || stats.Live != 1 || stats.Expired != 1 {
			t.Errorf("expected 2 entries with 1 live, got %+v", stats)
		}
		if stats.TotalHits != 2 {
			t.Errorf("expected 2 stored hits, got %d", stats.TotalHits)
		}
		if stats.ByFunction[models.OpSlides] != 1 || stats.ByFunction[models.OpExercises] != 1 {
			t.Errorf("unexpected per-operation counts %v", stats.ByFunction)
		}

		n, err := s.Prune(ctx, now)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("expected 1 pruned, got %d", n)
		}
		if _, err := s.Get(ctx, "live"); err != nil {
			t.Errorf("live entry should survive prune: %v", err)
		}
		if _, err := s.Get(ctx, "dead"); !errors.Is(err, cache.ErrNotFound) {
			t.Errorf("expected expired entry gone, got %v", err)
		}
		stats, _ = s.Stats(ctx, now)
		if stats.TotalHits != 1 {
			t.Errorf("expected pruned entry's hits gone, got %d", stats.TotalHits)
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		s := newStore(t)
		for i, key := range []string{"old", "mid", "new"} {
			created := now.Add(time.Duration(i-2) * time.Minute)
			_ = s.Upsert(ctx, Entry(key, "op", key, now.Add(time.Hour), created))
		}
		entries, err := s.List(ctx, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].CacheKey != "new" || entries[1].CacheKey != "mid" {
			t.Errorf("expected new then mid, got %s then %s", entries[0].CacheKey, entries[1].CacheKey)
		}
		if len(entries[0].Response) != 0 {
			t.Errorf("expected list without payloads, got %s", entries[0].Response)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		s := newStore(t)
		_ = s.Upsert(ctx, Entry("a", "op", "a", now.Add(time.Hour), now))
		_ = s.Upsert(ctx, Entry("b", "op", "b", now.Add(time.Hour), now))
		_ = s.IncrementHits(ctx, "a")
		if err := s.Clear(ctx); err != nil {
			t.Fatal(err)
		}
		stats, err := s.Stats(ctx, now)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Entries != 0 || stats.TotalHits != 0 {
			t.Errorf("expected empty store after clear, got %+v", stats)
		}
	})
}

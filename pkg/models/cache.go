package models

import (
	"encoding/json"
	"time"
)

// CacheEntry stores a cached generation result.
type CacheEntry struct {
	CacheKey     string          `json:"cache_key"`
	FunctionName string          `json:"function_name"`
	RequestHash  string          `json:"request_hash"`
	Response     json.RawMessage `json:"response"`
	ExpiresAt    time.Time       `json:"expires_at"`
	HitCount     int64           `json:"hit_count"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Live reports whether the entry has not yet expired at now.
func (e CacheEntry) Live(now time.Time) bool {
	return e.ExpiresAt.After(now)
}

// CacheStats reports cache contents and performance metrics.
type CacheStats struct {
	Entries    int64            `json:"entries"`
	Live       int64            `json:"live"`
	Expired    int64            `json:"expired"`
	TotalHits  int64            `json:"total_hits"`
	Hits       int64            `json:"hits"`
	Misses     int64            `json:"misses"`
	ByFunction map[string]int64 `json:"by_function,omitempty"`
}

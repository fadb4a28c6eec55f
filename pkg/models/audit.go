package models

import "time"

// GenerationEvent records the outcome of one generation request.
type GenerationEvent struct {
	ID        int64     `json:"id,omitempty"`
	RequestID string    `json:"request_id"`
	Operation string    `json:"operation"`
	CacheKey  string    `json:"cache_key"`
	CacheHit  bool      `json:"cache_hit"`
	Provider  string    `json:"provider,omitempty"`
	Status    string    `json:"status"`
	ErrorCode string    `json:"error_code,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditConfig controls the generation audit log.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// AuditQueryOpts specifies filters for querying generation events.
type AuditQueryOpts struct {
	Operation string
	Since     time.Time
	RequestID string
	Status    string
	Limit     int
}

// AuditStat holds aggregate counts for an operation/day combination.
type AuditStat struct {
	Operation string
	Day       string
	Count     int
	CacheHits int
	Failures  int
}

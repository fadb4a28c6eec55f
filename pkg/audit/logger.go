// Package audit keeps a log of generation requests in a dedicated SQLite
// database: which operation ran, whether it was served from cache, which
// provider answered and how it ended.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/courseforge/courseforge/pkg/models"
)

// Event statuses besides the error envelope statuses.
const StatusOK = "ok"

// Logger writes and queries generation events.
type Logger struct {
	db   *sql.DB
	cfg  models.AuditConfig
	done chan struct{}
	wg   sync.WaitGroup
}

// New opens the audit SQLite database and creates the schema.
func New(cfg models.AuditConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	l := &Logger{
		db:   db,
		cfg:  cfg,
		done: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

const eventsTable = `CREATE TABLE IF NOT EXISTS generation_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id  TEXT NOT NULL,
	operation   TEXT NOT NULL,
	cache_key   TEXT,
	cache_hit   INTEGER NOT NULL DEFAULT 0,
	provider    TEXT,
	status      TEXT NOT NULL,
	error_code  TEXT,
	latency_ms  INTEGER,
	created_at  INTEGER NOT NULL
)`

func migrate(db *sql.DB) error {
	if err := upgradeKeyedByRequest(db); err != nil {
		return err
	}
	for _, stmt := range []string{
		eventsTable,
		`CREATE INDEX IF NOT EXISTS idx_events_request ON generation_events(request_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_operation ON generation_events(operation)`,
		`CREATE INDEX IF NOT EXISTS idx_events_created ON generation_events(created_at)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// upgradeKeyedByRequest rebuilds a table created when request_id was the
// primary key. Existing rows are kept.
func upgradeKeyedByRequest(db *sql.DB) error {
	var tables, idCols int
	if err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'generation_events'`).Scan(&tables); err != nil {
		return err
	}
	if tables == 0 {
		return nil
	}
	if err := db.QueryRow(`SELECT count(*) FROM pragma_table_info('generation_events') WHERE name = 'id'`).Scan(&idCols); err != nil {
		return err
	}
	if idCols > 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range []string{
		`ALTER TABLE generation_events RENAME TO generation_events_old`,
		`DROP INDEX IF EXISTS idx_events_operation`,
		`DROP INDEX IF EXISTS idx_events_created`,
		eventsTable,
		`INSERT INTO generation_events
			(request_id, operation, cache_key, cache_hit, provider, status, error_code, latency_ms, created_at)
		 SELECT request_id, operation, cache_key, cache_hit, provider, status, error_code, latency_ms, created_at
		 FROM generation_events_old ORDER BY created_at`,
		`DROP TABLE generation_events_old`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("upgrade audit schema: %w", err)
		}
	}
	return tx.Commit()
}

// Log appends an event. Events sharing a request ID are all kept. A nil
// Logger discards the event.
func (l *Logger) Log(ctx context.Context, ev models.GenerationEvent) error {
	if l == nil || l.db == nil {
		return nil
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO generation_events
		(request_id, operation, cache_key, cache_hit, provider, status, error_code, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RequestID, ev.Operation, ev.CacheKey, ev.CacheHit, ev.Provider,
		ev.Status, ev.ErrorCode, ev.LatencyMs, ev.CreatedAt.UnixMilli(),
	)
	return err
}

// Query returns events matching the given options, newest first.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.GenerationEvent, error) {
	q := `SELECT id, request_id, operation, cache_key, cache_hit, provider, status, error_code, latency_ms, created_at
		FROM generation_events WHERE 1=1`
	var args []any

	if opts.RequestID != "" {
		q += " AND request_id = ?"
		args = append(args, opts.RequestID)
	}
	if opts.Operation != "" {
		q += " AND operation = ?"
		args = append(args, opts.Operation)
	}
	if opts.Status != "" {
		q += " AND status = ?"
		args = append(args, opts.Status)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since.UnixMilli())
	}

	q += " ORDER BY created_at DESC, id DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var events []models.GenerationEvent
	for rows.Next() {
		var e models.GenerationEvent
		var cacheKey, provider, errorCode sql.NullString
		var createdAt int64
		if err := rows.Scan(
			&e.ID, &e.RequestID, &e.Operation, &cacheKey, &e.CacheHit, &provider,
			&e.Status, &errorCode, &e.LatencyMs, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.CacheKey = cacheKey.String
		e.Provider = provider.String
		e.ErrorCode = errorCode.String
		e.CreatedAt = time.UnixMilli(createdAt)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Stats returns counts grouped by operation and UTC day.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT operation,
		        date(created_at / 1000, 'unixepoch') AS day,
		        count(*),
		        sum(cache_hit),
		        sum(CASE WHEN status = ? THEN 0 ELSE 1 END)
		 FROM generation_events GROUP BY operation, day ORDER BY day DESC, operation`, StatusOK)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var s models.AuditStat
		var day sql.NullString
		if err := rows.Scan(&s.Operation, &day, &s.Count, &s.CacheHits, &s.Failures); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes events older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	if l.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM generation_events WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	if l.cfg.RetentionDays <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}

package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"legalis-hq/themis/pkg/quota/window"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS usage_events (
	id          TEXT PRIMARY KEY,
	governor    TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL,
	amount      INTEGER NOT NULL,
	metadata    TEXT
);

CREATE INDEX IF NOT EXISTS idx_usage_events_governor_time
	ON usage_events(governor, recorded_at);

CREATE TABLE IF NOT EXISTS window_summaries (
	governor     TEXT NOT NULL,
	period       TEXT NOT NULL,
	window_start TIMESTAMP NOT NULL,
	window_end   TIMESTAMP NOT NULL,
	total        INTEGER NOT NULL,
	cap          INTEGER NOT NULL,
	status       TEXT NOT NULL,
	archived_at  TIMESTAMP NOT NULL,
	PRIMARY KEY (governor, period, window_start)
);
`

// Config contains configuration for the SQLite archive.
type Config struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// WALMode enables Write-Ahead Logging mode. Default: true
	WALMode bool
}

// DefaultConfig returns the default archive configuration.
func DefaultConfig() *Config {
	return &Config{
		Path:        "data/themis.db",
		BusyTimeout: 5 * time.Second,
		WALMode:     true,
	}
}

// WindowSummary is one archived window: what was consumed against what cap,
// and the health tier at capture time.
type WindowSummary struct {
	Governor    string    `json:"governor"`
	Period      string    `json:"period"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Total       int64     `json:"total"`
	Cap         int64     `json:"cap"`
	Status      string    `json:"status"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// Archive is the SQLite-backed usage history store.
type Archive struct {
	db     *sql.DB
	config *Config
	logger *slog.Logger
}

// Open opens (or creates) the archive database and initializes the schema.
func Open(config *Config) (*Archive, error) {
	if config == nil {
		config = DefaultConfig()
	}

	logger := slog.Default().With("component", "quota.archive")

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", config.Path, err)
	}

	a := &Archive{db: db, config: config, logger: logger}
	if err := a.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("archive opened",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return a, nil
}

func (a *Archive) initialize() error {
	if a.config.WALMode {
		if _, err := a.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("enable wal: %w", err)
		}
	}
	if _, err := a.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", a.config.BusyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := a.db.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("insert schema version: %w", err)
	}

	var version int
	err := a.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("get schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("schema version mismatch: expected %d, got %d", schemaVersion, version)
	}
	return nil
}

// RecordEvent persists one usage event for the named governor.
func (a *Archive) RecordEvent(ctx context.Context, governor string, ev window.UsageEvent) error {
	var metadata interface{}
	if len(ev.Metadata) > 0 {
		raw, _ := json.Marshal(ev.Metadata)
		metadata = string(raw)
	}

	_, err := a.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO usage_events (id, governor, recorded_at, amount, metadata)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.ID, governor, ev.Timestamp.UTC(), ev.Amount, metadata,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ArchiveWindow upserts one window summary. Re-archiving the same window
// replaces the previous capture, so a sweep can run mid-window and again at
// the end without duplicating rows.
func (a *Archive) ArchiveWindow(ctx context.Context, s WindowSummary) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO window_summaries
			(governor, period, window_start, window_end, total, cap, status, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(governor, period, window_start) DO UPDATE SET
			total = excluded.total,
			status = excluded.status,
			archived_at = excluded.archived_at`,
		s.Governor, s.Period, s.WindowStart.UTC(), s.WindowEnd.UTC(),
		s.Total, s.Cap, s.Status, s.ArchivedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("archive window: %w", err)
	}
	return nil
}

// Summaries returns archived windows for a governor since the given time,
// newest first.
func (a *Archive) Summaries(ctx context.Context, governor string, since time.Time, limit int) ([]WindowSummary, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT governor, period, window_start, window_end, total, cap, status, archived_at
		 FROM window_summaries
		 WHERE governor = ? AND window_start >= ?
		 ORDER BY window_start DESC
		 LIMIT ?`,
		governor, since.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []WindowSummary
	for rows.Next() {
		var s WindowSummary
		if err := rows.Scan(&s.Governor, &s.Period, &s.WindowStart, &s.WindowEnd,
			&s.Total, &s.Cap, &s.Status, &s.ArchivedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Events returns usage events for a governor since the given time, newest
// first.
func (a *Archive) Events(ctx context.Context, governor string, since time.Time, limit int) ([]window.UsageEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT id, recorded_at, amount, metadata
		 FROM usage_events
		 WHERE governor = ? AND recorded_at >= ?
		 ORDER BY recorded_at DESC
		 LIMIT ?`,
		governor, since.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []window.UsageEvent
	for rows.Next() {
		var (
			ev       window.UsageEvent
			metadata sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.Amount, &metadata); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &ev.Metadata); err != nil {
				return nil, fmt.Errorf("parse event metadata: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Prune deletes usage events recorded before the cutoff. Window summaries
// are never pruned; they are the long-term record.
func (a *Archive) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := a.db.ExecContext(ctx,
		"DELETE FROM usage_events WHERE recorded_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	if deleted > 0 {
		a.logger.Info("pruned archived events",
			"deleted_count", deleted,
			"cutoff", cutoff.UTC().Format(time.RFC3339),
		)
	}
	return deleted, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

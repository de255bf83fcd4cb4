package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements CounterStore on a SQLite database. It is suitable
// for single-instance deployments that need counters to survive restarts.
//
// SQLite's single-writer model makes the upsert-increment statement atomic:
// the entire read-modify-write happens inside one statement, so concurrent
// callers within or across processes on the same file cannot lose updates.
type SQLiteStore struct {
	db *sql.DB

	incrStmt *sql.Stmt
	getStmt  *sql.Stmt
	setStmt  *sql.Stmt
}

// SQLiteStoreConfig configures the SQLite store.
type SQLiteStoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a SQLite-backed counter store at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{DBPath: dbPath})
}

// NewSQLiteStoreWithConfig creates a SQLite-backed counter store with custom
// configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS counters (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL,
		expires_at INTEGER,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_counters_expires ON counters(expires_at)
		WHERE expires_at IS NOT NULL;
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	// The CASE arms restart expired rows from zero, so a key that was set
	// with an expiry behaves like a fresh counter once the expiry passes.
	s.incrStmt, err = s.db.Prepare(`
		INSERT INTO counters (key, value, expires_at, updated_at)
		VALUES (?1, ?2, NULL, ?3)
		ON CONFLICT(key) DO UPDATE SET
			value = CASE
				WHEN counters.expires_at IS NOT NULL AND counters.expires_at <= ?3
				THEN ?2
				ELSE counters.value + ?2
			END,
			expires_at = CASE
				WHEN counters.expires_at IS NOT NULL AND counters.expires_at <= ?3
				THEN NULL
				ELSE counters.expires_at
			END,
			updated_at = ?3
		RETURNING value`)
	if err != nil {
		return err
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT value FROM counters
		WHERE key = ?1 AND (expires_at IS NULL OR expires_at > ?2)`)
	if err != nil {
		return err
	}

	s.setStmt, err = s.db.Prepare(`
		INSERT INTO counters (key, value, expires_at, updated_at)
		VALUES (?1, ?2, ?3, ?4)
		ON CONFLICT(key) DO UPDATE SET
			value = ?2, expires_at = ?3, updated_at = ?4`)
	return err
}

// AtomicIncrement adds amount to the counter at key and returns the new value.
func (s *SQLiteStore) AtomicIncrement(ctx context.Context, key string, amount int64) (int64, error) {
	now := time.Now().UnixMilli()

	var value int64
	if err := s.incrStmt.QueryRowContext(ctx, key, amount, now).Scan(&value); err != nil {
		return 0, fmt.Errorf("sqlite increment %s: %w", key, err)
	}
	return value, nil
}

// Get returns the value at key, or false when the key is absent or expired.
func (s *SQLiteStore) Get(ctx context.Context, key string) (int64, bool, error) {
	now := time.Now().UnixMilli()

	var value int64
	err := s.getStmt.QueryRowContext(ctx, key, now).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return value, true, nil
}

// SetWithExpiry sets key to value, expiring after ttl.
func (s *SQLiteStore) SetWithExpiry(ctx context.Context, key string, value int64, ttl time.Duration) error {
	now := time.Now()

	var expires any
	if ttl > 0 {
		expires = now.Add(ttl).UnixMilli()
	}

	if _, err := s.setStmt.ExecContext(ctx, key, value, expires, now.UnixMilli()); err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

// Close closes the database and prepared statements.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.incrStmt, s.getStmt, s.setStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

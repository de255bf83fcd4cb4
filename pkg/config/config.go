package config

import "time"

// Config is the root configuration structure for Themis. It contains all
// configuration sections for the admin server, the shared counter store,
// both quota governors, the usage archive, and logging.
type Config struct {
	// Server contains the HTTP admin server configuration including listen
	// address and timeouts.
	Server ServerConfig `yaml:"server"`

	// Store contains the shared counter store configuration including
	// backend selection and connection settings.
	Store StoreConfig `yaml:"store"`

	// Rate contains the judicial-records call quota configuration.
	Rate RateConfig `yaml:"rate"`

	// Spend contains the AI inference spend ceiling configuration.
	Spend SpendConfig `yaml:"spend"`

	// Archive contains the usage history archive configuration.
	Archive ArchiveConfig `yaml:"archive"`

	// Logging contains log level and format settings.
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains configuration for the HTTP admin server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port". Default: "127.0.0.1:8355"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout. Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig contains configuration for the shared counter store.
type StoreConfig struct {
	// Backend selects the store implementation: "memory", "redis" or
	// "sqlite". Memory is only correct for single-process deployments.
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Redis configures the Redis backend. Only used when Backend is "redis".
	Redis RedisConfig `yaml:"redis"`

	// SQLite configures the SQLite backend. Only used when Backend is
	// "sqlite".
	SQLite SQLiteConfig `yaml:"sqlite"`

	// RetryBackoff is the pause before the single retry on a store failure.
	// Default: 50ms
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// RedisConfig contains connection settings for the Redis counter store.
type RedisConfig struct {
	// Address is the Redis server address. Default: "127.0.0.1:6379"
	Address string `yaml:"address"`

	// Password is the Redis password, if any.
	Password string `yaml:"password"`

	// DB is the Redis database number. Default: 0
	DB int `yaml:"db"`

	// KeyPrefix namespaces all counter keys. Default: "themis"
	KeyPrefix string `yaml:"key_prefix"`
}

// SQLiteConfig contains settings for the SQLite counter store.
type SQLiteConfig struct {
	// Path is the database file path. Default: "data/counters.db"
	Path string `yaml:"path"`
}

// RateConfig contains the judicial-records call quota limits.
type RateConfig struct {
	// HardLimit is the provider's hourly call ceiling. Utilization is
	// computed against this value. Must be positive. Default: 5000
	HardLimit int64 `yaml:"hard_limit"`

	// BufferLimit is where admission stops, leaving headroom below the hard
	// ceiling. Zero means no headroom: admission stops at the hard limit.
	// Default: 4500
	BufferLimit int64 `yaml:"buffer_limit"`

	// WarningPercent is the utilization at which status turns warning.
	// Default: 75
	WarningPercent float64 `yaml:"warning_percent"`

	// CriticalPercent is the utilization at which status turns critical.
	// Default: 90
	CriticalPercent float64 `yaml:"critical_percent"`
}

// SpendConfig contains the AI inference spend ceilings, in dollars.
type SpendConfig struct {
	// DailyLimit is the per-day spend ceiling in dollars. Must be positive.
	// Default: 50
	DailyLimit float64 `yaml:"daily_limit"`

	// MonthlyLimit is the per-month spend ceiling in dollars. Must be
	// positive and at least the daily limit. Default: 1000
	MonthlyLimit float64 `yaml:"monthly_limit"`

	// PerEventMax is the largest single spend event admitted without an
	// override warning, in dollars. Zero disables the per-event check.
	// Default: 5
	PerEventMax float64 `yaml:"per_event_max"`

	// WarningPercent is the utilization at which status turns warning.
	// Default: 75
	WarningPercent float64 `yaml:"warning_percent"`

	// CriticalPercent is the utilization at which status turns critical.
	// Default: 90
	CriticalPercent float64 `yaml:"critical_percent"`
}

// ArchiveConfig contains configuration for the SQLite usage archive.
type ArchiveConfig struct {
	// Enabled turns the archive on. Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the archive database file path. Default: "data/themis.db"
	Path string `yaml:"path"`

	// SweepSchedule is the cron expression for capturing window summaries.
	// Default: "*/15 * * * *"
	SweepSchedule string `yaml:"sweep_schedule"`

	// RetentionDays is how many days of individual usage events to keep.
	// 0 keeps events forever. Default: 90
	RetentionDays int `yaml:"retention_days"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn" or "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text". Default: "json"
	Format string `yaml:"format"`
}

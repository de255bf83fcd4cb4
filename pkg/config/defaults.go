package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8355"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Store defaults
	DefaultStoreBackend    = "memory"
	DefaultRedisAddress    = "127.0.0.1:6379"
	DefaultRedisKeyPrefix  = "themis"
	DefaultSQLitePath      = "data/counters.db"
	DefaultRetryBackoff    = 50 * time.Millisecond

	// Rate defaults
	DefaultRateHardLimit   = 5000
	DefaultRateBufferLimit = 4500

	// Spend defaults, in dollars
	DefaultSpendDailyLimit   = 50.0
	DefaultSpendMonthlyLimit = 1000.0
	DefaultSpendPerEventMax  = 5.0

	// Status thresholds, percent of the hard limit
	DefaultWarningPercent  = 75.0
	DefaultCriticalPercent = 90.0

	// Archive defaults
	DefaultArchivePath          = "data/themis.db"
	DefaultArchiveSweepSchedule = "*/15 * * * *"
	DefaultArchiveRetentionDays = 90

	// Logging defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"
)

// ApplyDefaults fills in default values for any unset configuration fields.
// It modifies the configuration in place.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Store defaults
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Store.Redis.Address == "" {
		cfg.Store.Redis.Address = DefaultRedisAddress
	}
	if cfg.Store.Redis.KeyPrefix == "" {
		cfg.Store.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Store.SQLite.Path == "" {
		cfg.Store.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Store.RetryBackoff == 0 {
		cfg.Store.RetryBackoff = DefaultRetryBackoff
	}

	// Rate defaults
	if cfg.Rate.HardLimit == 0 {
		cfg.Rate.HardLimit = DefaultRateHardLimit
	}
	if cfg.Rate.BufferLimit == 0 {
		// The stock buffer leaves headroom under the stock hard limit; a
		// smaller configured hard limit caps the buffer at the limit itself
		// so the default never fails validation.
		cfg.Rate.BufferLimit = min(DefaultRateBufferLimit, cfg.Rate.HardLimit)
	}
	if cfg.Rate.WarningPercent == 0 {
		cfg.Rate.WarningPercent = DefaultWarningPercent
	}
	if cfg.Rate.CriticalPercent == 0 {
		cfg.Rate.CriticalPercent = DefaultCriticalPercent
	}

	// Spend defaults
	if cfg.Spend.DailyLimit == 0 {
		cfg.Spend.DailyLimit = DefaultSpendDailyLimit
	}
	if cfg.Spend.MonthlyLimit == 0 {
		cfg.Spend.MonthlyLimit = DefaultSpendMonthlyLimit
	}
	if cfg.Spend.PerEventMax == 0 {
		cfg.Spend.PerEventMax = DefaultSpendPerEventMax
	}
	if cfg.Spend.WarningPercent == 0 {
		cfg.Spend.WarningPercent = DefaultWarningPercent
	}
	if cfg.Spend.CriticalPercent == 0 {
		cfg.Spend.CriticalPercent = DefaultCriticalPercent
	}

	// Archive defaults
	if cfg.Archive.Path == "" {
		cfg.Archive.Path = DefaultArchivePath
	}
	if cfg.Archive.SweepSchedule == "" {
		cfg.Archive.SweepSchedule = DefaultArchiveSweepSchedule
	}
	if cfg.Archive.RetentionDays == 0 {
		cfg.Archive.RetentionDays = DefaultArchiveRetentionDays
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention THEMIS_SECTION_FIELD (e.g., THEMIS_RATE_HARD_LIMIT) and always
// take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Malformed values are ignored; the file value stands.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("THEMIS_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("THEMIS_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Store overrides
	if val := os.Getenv("THEMIS_STORE_BACKEND"); val != "" {
		cfg.Store.Backend = val
	}
	if val := os.Getenv("THEMIS_STORE_REDIS_ADDRESS"); val != "" {
		cfg.Store.Redis.Address = val
	}
	if val := os.Getenv("THEMIS_STORE_REDIS_PASSWORD"); val != "" {
		cfg.Store.Redis.Password = val
	}
	if val := os.Getenv("THEMIS_STORE_REDIS_DB"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Store.Redis.DB = i
		}
	}
	if val := os.Getenv("THEMIS_STORE_SQLITE_PATH"); val != "" {
		cfg.Store.SQLite.Path = val
	}

	// Rate overrides
	if val := os.Getenv("THEMIS_RATE_HARD_LIMIT"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Rate.HardLimit = i
		}
	}
	if val := os.Getenv("THEMIS_RATE_BUFFER_LIMIT"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Rate.BufferLimit = i
		}
	}

	// Spend overrides
	if val := os.Getenv("THEMIS_SPEND_DAILY_LIMIT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Spend.DailyLimit = f
		}
	}
	if val := os.Getenv("THEMIS_SPEND_MONTHLY_LIMIT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Spend.MonthlyLimit = f
		}
	}
	if val := os.Getenv("THEMIS_SPEND_PER_EVENT_MAX"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Spend.PerEventMax = f
		}
	}

	// Archive overrides
	if val := os.Getenv("THEMIS_ARCHIVE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Archive.Enabled = b
		}
	}
	if val := os.Getenv("THEMIS_ARCHIVE_PATH"); val != "" {
		cfg.Archive.Path = val
	}

	// Logging overrides
	if val := os.Getenv("THEMIS_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("THEMIS_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}

package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration
// field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g.,
	// "rate.hard_limit").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. All field errors are collected and returned together.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. A configuration that fails validation must
// never be handed to the governors.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateRate(&cfg.Rate)...)
	errs = append(errs, validateSpend(&cfg.Spend)...)
	errs = append(errs, validateArchive(&cfg.Archive)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{"server.listen_address", "must not be empty"})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{"server.listen_address",
			fmt.Sprintf("invalid address %q: must be host:port", cfg.ListenAddress)})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{"server.shutdown_timeout", "must not be negative"})
	}
	return errs
}

func validateStore(cfg *StoreConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "redis":
		if cfg.Redis.Address == "" {
			errs = append(errs, FieldError{"store.redis.address", "must not be empty"})
		}
		if cfg.Redis.DB < 0 {
			errs = append(errs, FieldError{"store.redis.db", "must not be negative"})
		}
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{"store.sqlite.path", "must not be empty"})
		}
	default:
		errs = append(errs, FieldError{"store.backend",
			fmt.Sprintf("unknown backend %q: must be memory, redis or sqlite", cfg.Backend)})
	}

	if cfg.RetryBackoff < 0 {
		errs = append(errs, FieldError{"store.retry_backoff", "must not be negative"})
	}
	return errs
}

func validateRate(cfg *RateConfig) []FieldError {
	var errs []FieldError

	if cfg.HardLimit <= 0 {
		errs = append(errs, FieldError{"rate.hard_limit", "must be positive"})
	}
	if cfg.BufferLimit < 0 {
		errs = append(errs, FieldError{"rate.buffer_limit", "must not be negative"})
	}
	if cfg.BufferLimit > cfg.HardLimit {
		errs = append(errs, FieldError{"rate.buffer_limit",
			"must not exceed rate.hard_limit"})
	}
	errs = append(errs, validateThresholds("rate", cfg.WarningPercent, cfg.CriticalPercent)...)
	return errs
}

func validateSpend(cfg *SpendConfig) []FieldError {
	var errs []FieldError

	if cfg.DailyLimit <= 0 {
		errs = append(errs, FieldError{"spend.daily_limit", "must be positive"})
	}
	if cfg.MonthlyLimit <= 0 {
		errs = append(errs, FieldError{"spend.monthly_limit", "must be positive"})
	}
	if cfg.MonthlyLimit > 0 && cfg.DailyLimit > 0 && cfg.MonthlyLimit < cfg.DailyLimit {
		errs = append(errs, FieldError{"spend.monthly_limit",
			"must be at least spend.daily_limit"})
	}
	if cfg.PerEventMax < 0 {
		errs = append(errs, FieldError{"spend.per_event_max", "must not be negative"})
	}
	errs = append(errs, validateThresholds("spend", cfg.WarningPercent, cfg.CriticalPercent)...)
	return errs
}

func validateThresholds(section string, warning, critical float64) []FieldError {
	var errs []FieldError

	if warning <= 0 || warning >= 100 {
		errs = append(errs, FieldError{section + ".warning_percent",
			"must be between 0 and 100 exclusive"})
	}
	if critical <= 0 || critical >= 100 {
		errs = append(errs, FieldError{section + ".critical_percent",
			"must be between 0 and 100 exclusive"})
	}
	if warning > 0 && critical > 0 && warning >= critical {
		errs = append(errs, FieldError{section + ".warning_percent",
			"must be below " + section + ".critical_percent"})
	}
	return errs
}

func validateArchive(cfg *ArchiveConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}
	if cfg.Path == "" {
		errs = append(errs, FieldError{"archive.path", "must not be empty"})
	}
	if cfg.SweepSchedule != "" {
		if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
			errs = append(errs, FieldError{"archive.sweep_schedule",
				fmt.Sprintf("invalid cron expression %q", cfg.SweepSchedule)})
		}
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{"archive.retention_days", "must not be negative"})
	}
	return errs
}

func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"logging.level",
			fmt.Sprintf("unknown level %q: must be debug, info, warn or error", cfg.Level)})
	}
	switch cfg.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"logging.format",
			fmt.Sprintf("unknown format %q: must be json or text", cfg.Format)})
	}
	return errs
}

package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return DefaultConfig()
}

func TestValidateDefaults(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateFieldErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "empty listen address",
			mutate:    func(c *Config) { c.Server.ListenAddress = "" },
			wantField: "server.listen_address",
		},
		{
			name:      "listen address without port",
			mutate:    func(c *Config) { c.Server.ListenAddress = "localhost" },
			wantField: "server.listen_address",
		},
		{
			name:      "unknown store backend",
			mutate:    func(c *Config) { c.Store.Backend = "etcd" },
			wantField: "store.backend",
		},
		{
			name:      "zero hard limit",
			mutate:    func(c *Config) { c.Rate.HardLimit = 0 },
			wantField: "rate.hard_limit",
		},
		{
			name:      "negative hard limit",
			mutate:    func(c *Config) { c.Rate.HardLimit = -1 },
			wantField: "rate.hard_limit",
		},
		{
			name:      "buffer above hard limit",
			mutate:    func(c *Config) { c.Rate.BufferLimit = c.Rate.HardLimit + 1 },
			wantField: "rate.buffer_limit",
		},
		{
			name:      "zero daily limit",
			mutate:    func(c *Config) { c.Spend.DailyLimit = 0 },
			wantField: "spend.daily_limit",
		},
		{
			name:      "monthly below daily",
			mutate:    func(c *Config) { c.Spend.MonthlyLimit = c.Spend.DailyLimit / 2 },
			wantField: "spend.monthly_limit",
		},
		{
			name:      "negative per event max",
			mutate:    func(c *Config) { c.Spend.PerEventMax = -1 },
			wantField: "spend.per_event_max",
		},
		{
			name:      "warning above critical",
			mutate:    func(c *Config) { c.Rate.WarningPercent = 95 },
			wantField: "rate.warning_percent",
		},
		{
			name:      "warning out of range",
			mutate:    func(c *Config) { c.Spend.WarningPercent = 150 },
			wantField: "spend.warning_percent",
		},
		{
			name: "bad archive cron",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.SweepSchedule = "whenever"
			},
			wantField: "archive.sweep_schedule",
		},
		{
			name:      "unknown log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantField: "logging.level",
		},
		{
			name:      "unknown log format",
			mutate:    func(c *Config) { c.Logging.Format = "xml" },
			wantField: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("want validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Fatalf("error %q does not mention field %s", err.Error(), tt.wantField)
			}
		})
	}
}

func TestValidateDisabledArchiveSkipsChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Archive.Enabled = false
	cfg.Archive.SweepSchedule = "whenever"

	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled archive should not be validated: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Rate.HardLimit = 0
	cfg.Spend.DailyLimit = 0
	cfg.Logging.Level = "verbose"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("want validation error, got nil")
	}

	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("want ValidationError, got %T", err)
	}
	if len(verr.Errors) < 3 {
		t.Fatalf("want at least 3 field errors, got %d: %v", len(verr.Errors), verr.Errors)
	}
}

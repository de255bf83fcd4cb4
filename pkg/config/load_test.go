package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "themis.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
rate:
  hard_limit: 4500
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("listen address = %q, want default %q", cfg.Server.ListenAddress, DefaultListenAddress)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("store backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Rate.HardLimit != 4500 {
		t.Errorf("hard limit = %d, want 4500", cfg.Rate.HardLimit)
	}
	if cfg.Rate.BufferLimit != DefaultRateBufferLimit {
		t.Errorf("buffer limit = %d, want default %d", cfg.Rate.BufferLimit, int64(DefaultRateBufferLimit))
	}
	if cfg.Spend.DailyLimit != DefaultSpendDailyLimit {
		t.Errorf("daily limit = %v, want default %v", cfg.Spend.DailyLimit, DefaultSpendDailyLimit)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("shutdown timeout = %v, want 30s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %q/%q, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadConfigBufferDefaultTracksSmallHardLimit(t *testing.T) {
	// A hard limit below the stock buffer default must still load: the
	// buffer defaults to the hard limit rather than overshooting it.
	path := writeConfigFile(t, `
rate:
  hard_limit: 2000
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Rate.BufferLimit != 2000 {
		t.Errorf("buffer limit = %d, want 2000", cfg.Rate.BufferLimit)
	}
}

func TestLoadConfigExplicitValues(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: "0.0.0.0:9000"
store:
  backend: redis
  redis:
    address: "redis.internal:6379"
    db: 2
rate:
  hard_limit: 1000
  buffer_limit: 800
spend:
  daily_limit: 25
  monthly_limit: 400
  per_event_max: 2.5
archive:
  enabled: true
  path: "/var/lib/themis/archive.db"
logging:
  level: debug
  format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Store.Backend != "redis" || cfg.Store.Redis.Address != "redis.internal:6379" || cfg.Store.Redis.DB != 2 {
		t.Errorf("redis settings not honored: %+v", cfg.Store)
	}
	if cfg.Rate.HardLimit != 1000 || cfg.Rate.BufferLimit != 800 {
		t.Errorf("rate limits = %d/%d, want 1000/800", cfg.Rate.HardLimit, cfg.Rate.BufferLimit)
	}
	if cfg.Spend.PerEventMax != 2.5 {
		t.Errorf("per event max = %v, want 2.5", cfg.Spend.PerEventMax)
	}
	if !cfg.Archive.Enabled || cfg.Archive.Path != "/var/lib/themis/archive.db" {
		t.Errorf("archive settings not honored: %+v", cfg.Archive)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file should error")
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "rate: [not a mapping")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("malformed yaml should error")
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := writeConfigFile(t, `
rate:
  hard_limit: -10
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("negative hard limit should fail validation")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
rate:
  hard_limit: 4500
spend:
  daily_limit: 50
`)

	t.Setenv("THEMIS_RATE_HARD_LIMIT", "2000")
	t.Setenv("THEMIS_RATE_BUFFER_LIMIT", "1500")
	t.Setenv("THEMIS_SPEND_DAILY_LIMIT", "75.5")
	t.Setenv("THEMIS_STORE_BACKEND", "sqlite")
	t.Setenv("THEMIS_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides: %v", err)
	}

	if cfg.Rate.HardLimit != 2000 || cfg.Rate.BufferLimit != 1500 {
		t.Errorf("rate limits = %d/%d, want 2000/1500", cfg.Rate.HardLimit, cfg.Rate.BufferLimit)
	}
	if cfg.Spend.DailyLimit != 75.5 {
		t.Errorf("daily limit = %v, want 75.5", cfg.Spend.DailyLimit)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("store backend = %q, want sqlite", cfg.Store.Backend)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("logging level = %q, want warn", cfg.Logging.Level)
	}
}

func TestEnvOverridesStillValidated(t *testing.T) {
	path := writeConfigFile(t, `
rate:
  hard_limit: 4500
`)

	t.Setenv("THEMIS_RATE_HARD_LIMIT", "-5")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Fatal("invalid override should fail validation")
	}
}

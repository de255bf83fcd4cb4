package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"legalis-hq/themis/pkg/config"
	"legalis-hq/themis/pkg/quota"
	"legalis-hq/themis/pkg/quota/archive"
	"legalis-hq/themis/pkg/quota/health"
	"legalis-hq/themis/pkg/quota/rate"
	"legalis-hq/themis/pkg/quota/spend"
	"legalis-hq/themis/pkg/quota/store"
	"legalis-hq/themis/pkg/quota/window"
)

// setupLogging installs the process-wide slog default per the logging
// configuration. The verbose flag forces debug level.
func setupLogging(cfg *config.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// openStore builds the configured counter store backend, wrapped with the
// single-retry layer.
func openStore(cfg *config.StoreConfig) (store.CounterStore, error) {
	var inner store.CounterStore

	switch cfg.Backend {
	case "memory":
		inner = store.NewMemoryStore()
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		inner = store.NewRedisStore(rdb, store.WithKeyPrefix(cfg.Redis.KeyPrefix))
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		inner = s
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}

	return store.NewRetrying(inner, store.WithBackoff(cfg.RetryBackoff)), nil
}

// rateConfigFrom maps the file configuration onto the rate governor config.
func rateConfigFrom(cfg *config.RateConfig) rate.Config {
	return rate.Config{
		HardLimit:   cfg.HardLimit,
		BufferLimit: cfg.BufferLimit,
		Thresholds: health.Thresholds{
			WarningPercent:  cfg.WarningPercent,
			CriticalPercent: cfg.CriticalPercent,
		},
	}
}

// spendConfigFrom maps the file configuration onto the spend governor
// config, converting dollars to fixed-point amounts.
func spendConfigFrom(cfg *config.SpendConfig) spend.Config {
	return spend.Config{
		DailyLimit:   spend.FromDollars(cfg.DailyLimit),
		MonthlyLimit: spend.FromDollars(cfg.MonthlyLimit),
		PerEventMax:  spend.FromDollars(cfg.PerEventMax),
		Thresholds: health.Thresholds{
			WarningPercent:  cfg.WarningPercent,
			CriticalPercent: cfg.CriticalPercent,
		},
	}
}

// newManager builds a quota manager from the file configuration.
func newManager(cfg *config.Config, s store.CounterStore, metrics *quota.Metrics) (*quota.Manager, error) {
	return quota.NewManager(quota.ManagerConfig{
		Rate:    rateConfigFrom(&cfg.Rate),
		Spend:   spendConfigFrom(&cfg.Spend),
		Store:   s,
		Metrics: metrics,
	})
}

// eventsFunc drains both governors' recent-event rings for the archive
// sweep. Re-offered events dedupe on their UUID.
func eventsFunc(manager *quota.Manager) archive.EventsFunc {
	return func(ctx context.Context) map[string][]window.UsageEvent {
		return map[string][]window.UsageEvent{
			quota.GovernorRate:  manager.Rate().RecentEvents(100),
			quota.GovernorSpend: manager.Spend().RecentEvents(100),
		}
	}
}

// summaryFunc adapts the manager's snapshot into archive window summaries:
// the rate hour window plus the spend day and month windows.
func summaryFunc(manager *quota.Manager) archive.SummaryFunc {
	return func(ctx context.Context) ([]archive.WindowSummary, error) {
		snap, err := manager.Snapshot(ctx)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		return []archive.WindowSummary{
			{
				Governor:    quota.GovernorRate,
				Period:      string(window.PeriodHour),
				WindowStart: snap.Rate.WindowStart,
				WindowEnd:   snap.Rate.WindowEnd,
				Total:       snap.Rate.TotalRequests,
				Cap:         snap.Rate.Limit,
				Status:      snap.Rate.Status.String(),
				ArchivedAt:  now,
			},
			{
				Governor:    quota.GovernorSpend,
				Period:      string(window.PeriodDay),
				WindowStart: snap.Spend.DailyWindow.Start,
				WindowEnd:   snap.Spend.DailyWindow.End,
				Total:       snap.Spend.Daily.Micros(),
				Cap:         snap.Spend.DailyLimit.Micros(),
				Status:      snap.Spend.Status.String(),
				ArchivedAt:  now,
			},
			{
				Governor:    quota.GovernorSpend,
				Period:      string(window.PeriodMonth),
				WindowStart: snap.Spend.MonthlyWindow.Start,
				WindowEnd:   snap.Spend.MonthlyWindow.End,
				Total:       snap.Spend.Monthly.Micros(),
				Cap:         snap.Spend.MonthlyLimit.Micros(),
				Status:      snap.Spend.Status.String(),
				ArchivedAt:  now,
			},
		}, nil
	}
}

package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"legalis-hq/themis/pkg/quota/health"
	"legalis-hq/themis/pkg/quota/rate"
	"legalis-hq/themis/pkg/quota/spend"
	"legalis-hq/themis/pkg/quota/store"
)

// Manager wires both quota governors to one shared counter store and
// instruments them. It is the single entry point the request handlers, the
// administrative surface and the alerting surface all go through.
//
// A Manager holds no counter state; constructing one per process is the
// intended deployment shape, with the injected CounterStore as the only
// shared state.
type Manager struct {
	rateGov  *rate.Governor
	spendGov *spend.Governor
	store    store.CounterStore
	metrics  *Metrics
	logger   *slog.Logger
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Rate configures the call-quota governor.
	Rate rate.Config

	// Spend configures the spend governor.
	Spend spend.Config

	// Store is the shared counter store. Defaults to an in-memory store,
	// which is only correct for single-process deployments.
	Store store.CounterStore

	// Metrics is optional; when nil, no metrics are recorded.
	Metrics *Metrics

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// NewManager creates a manager with both governors on the shared store.
// Configuration errors are fatal: the caller should exit, not retry.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "quota.manager")
	}

	rateGov, err := rate.New(cfg.Store, cfg.Rate, rate.WithLogger(cfg.Logger.With("governor", GovernorRate)))
	if err != nil {
		return nil, &ConfigError{Field: "rate", Err: err}
	}

	spendGov, err := spend.New(cfg.Store, cfg.Spend, spend.WithLogger(cfg.Logger.With("governor", GovernorSpend)))
	if err != nil {
		return nil, &ConfigError{Field: "spend", Err: err}
	}

	return &Manager{
		rateGov:  rateGov,
		spendGov: spendGov,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}, nil
}

// Rate returns the call-quota governor.
func (m *Manager) Rate() *rate.Governor { return m.rateGov }

// Spend returns the spend governor.
func (m *Manager) Spend() *spend.Governor { return m.spendGov }

// MayCallProvider is the instrumented pre-flight check for one
// judicial-records call. A false result is the caller's signal to back off;
// it is never an error.
func (m *Manager) MayCallProvider(ctx context.Context) bool {
	start := time.Now()
	limited := m.rateGov.IsRateLimited(ctx)
	m.observeCheck(GovernorRate, !limited, start)
	if limited && m.metrics != nil {
		m.metrics.RecordDenial(GovernorRate, "rate_limited")
	}
	return !limited
}

// RecordProviderCall records n calls that actually reached the provider.
func (m *Manager) RecordProviderCall(ctx context.Context, n int64) error {
	if err := m.rateGov.Consume(ctx, n); err != nil {
		if m.metrics != nil {
			m.metrics.RecordStoreFailure()
		}
		return err
	}
	if m.metrics != nil {
		m.metrics.RecordUsage(GovernorRate, n)
	}
	return nil
}

// CheckInferenceBudget is the instrumented pre-admission gate for one AI
// inference call with the given estimated cost.
func (m *Manager) CheckInferenceBudget(ctx context.Context, estimated spend.Amount) spend.CheckResult {
	start := time.Now()
	res := m.spendGov.CheckBudget(ctx, estimated)
	m.observeCheck(GovernorSpend, res.CanProceed, start)
	if !res.CanProceed && m.metrics != nil {
		m.metrics.RecordDenial(GovernorSpend, "budget_exhausted")
	}
	return res
}

// RecordInferenceSpend records the provider-reported actual cost of a
// completed inference call.
func (m *Manager) RecordInferenceSpend(ctx context.Context, actual spend.Amount, metadata map[string]string) error {
	if err := m.spendGov.RecordSpend(ctx, actual, metadata); err != nil {
		if m.metrics != nil {
			m.metrics.RecordStoreFailure()
		}
		return err
	}
	if m.metrics != nil {
		m.metrics.RecordUsage(GovernorSpend, actual.Micros())
	}
	return nil
}

// ReportProviderRejection applies an authoritative rate-limit rejection
// from the judicial-records provider.
func (m *Manager) ReportProviderRejection(ctx context.Context, resetAt time.Time) error {
	if m.metrics != nil {
		m.metrics.RecordOverride(GovernorRate, "provider_rejection")
	}
	return m.rateGov.ReportProviderRejection(ctx, resetAt)
}

// ResetRateWindow is the administrative override for the rate governor.
func (m *Manager) ResetRateWindow(ctx context.Context) error {
	if m.metrics != nil {
		m.metrics.RecordOverride(GovernorRate, "admin_reset")
	}
	return m.rateGov.ResetWindow(ctx)
}

// ResetDailySpend is the administrative override for the spend governor's
// daily window. The monthly total is untouched.
func (m *Manager) ResetDailySpend(ctx context.Context) error {
	if m.metrics != nil {
		m.metrics.RecordOverride(GovernorSpend, "admin_reset")
	}
	return m.spendGov.ResetDailyCosts(ctx)
}

// Snapshot assembles the combined read-only view and refreshes the gauges.
func (m *Manager) Snapshot(ctx context.Context) (Snapshot, error) {
	rateStats, err := m.rateGov.UsageStats(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("rate snapshot: %w", err)
	}

	breakdown, err := m.spendGov.CostBreakdown(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("spend snapshot: %w", err)
	}

	if m.metrics != nil {
		m.metrics.UpdateUtilization(GovernorRate, "hour", rateStats.UtilizationPercent)
		m.metrics.UpdateUtilization(GovernorSpend, "day", breakdown.DailyWindow.UtilizationPercent())
		m.metrics.UpdateUtilization(GovernorSpend, "month", breakdown.MonthlyWindow.UtilizationPercent())
		m.metrics.UpdateStatus(GovernorRate, int(rateStats.Status))
		m.metrics.UpdateStatus(GovernorSpend, int(breakdown.Status))
	}

	worst := rateStats.Status
	obs := rateObservation(rateStats)
	if breakdown.Status > worst {
		worst = breakdown.Status
		obs = spendObservation(breakdown)
	}

	return Snapshot{
		Rate:            rateStats,
		Spend:           breakdown,
		Status:          worst,
		Recommendations: health.Recommendations(obs),
	}, nil
}

// Close releases the shared store.
func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) observeCheck(governor string, allowed bool, start time.Time) {
	if m.metrics == nil {
		return
	}
	m.metrics.RecordAdmission(governor, allowed)
	m.metrics.RecordCheckDuration(governor, time.Since(start).Seconds())
}

func rateObservation(stats rate.UsageStats) health.Observation {
	now := time.Now().UTC()
	elapsed := now.Sub(stats.WindowStart)

	velocity := health.Velocity(float64(stats.TotalRequests), elapsed)
	tte, ok := health.TimeToExhaustion(float64(stats.Remaining), velocity)

	return health.Observation{
		Status:                stats.Status,
		UtilizationPercent:    stats.UtilizationPercent,
		Remaining:             float64(stats.Remaining),
		ResetIn:               stats.WindowEnd.Sub(now),
		TimeToExhaustion:      tte,
		HasExhaustionEstimate: ok,
	}
}

func spendObservation(bd spend.CostBreakdown) health.Observation {
	now := time.Now().UTC()

	// The daily window is the one operators can act on intraday.
	w := bd.DailyWindow
	elapsed := now.Sub(w.Start)

	velocity := health.Velocity(float64(w.Count), elapsed)
	tte, ok := health.TimeToExhaustion(float64(w.Remaining()), velocity)

	return health.Observation{
		Status:                bd.Status,
		UtilizationPercent:    w.UtilizationPercent(),
		Remaining:             (bd.DailyLimit - bd.Daily).Dollars(),
		ResetIn:               w.End.Sub(now),
		TimeToExhaustion:      tte,
		HasExhaustionEstimate: ok,
	}
}

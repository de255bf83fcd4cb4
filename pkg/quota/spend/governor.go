package spend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"legalis-hq/themis/pkg/quota/health"
	"legalis-hq/themis/pkg/quota/store"
	"legalis-hq/themis/pkg/quota/window"
)

// Config contains the static budget limits for the spend governor.
type Config struct {
	// DailyLimit is the spend ceiling for one UTC calendar day.
	DailyLimit Amount

	// MonthlyLimit is the spend ceiling for one UTC calendar month.
	MonthlyLimit Amount

	// PerEventMax caps the cost of a single call. Zero means no cap.
	PerEventMax Amount

	// Thresholds are the warning/critical tier boundaries.
	Thresholds health.Thresholds
}

func (c Config) validate() error {
	if c.DailyLimit <= 0 {
		return fmt.Errorf("daily limit must be positive, got %s", c.DailyLimit)
	}
	if c.MonthlyLimit <= 0 {
		return fmt.Errorf("monthly limit must be positive, got %s", c.MonthlyLimit)
	}
	if c.PerEventMax < 0 {
		return fmt.Errorf("per-event max cannot be negative, got %s", c.PerEventMax)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Thresholds == (health.Thresholds{}) {
		c.Thresholds = health.DefaultThresholds()
	}
	return c
}

// CheckResult is the admission decision for one estimated cost.
// A false CanProceed is a normal control-flow result, never an error.
type CheckResult struct {
	// CanProceed reports whether the call may be issued.
	CanProceed bool `json:"can_proceed"`

	// WarningLevel is the health tier of the most constrained window.
	WarningLevel health.Status `json:"warning_level"`

	// Message explains the decision for logs and operator tooling.
	Message string `json:"message"`
}

// CostBreakdown is the spend governor's snapshot.
type CostBreakdown struct {
	Daily                 Amount              `json:"daily_micros"`
	Monthly               Amount              `json:"monthly_micros"`
	DailyLimit            Amount              `json:"daily_limit_micros"`
	MonthlyLimit          Amount              `json:"monthly_limit_micros"`
	RequestCount          int64               `json:"request_count"`
	AverageCostPerRequest Amount              `json:"average_cost_per_request_micros"`
	ProjectedMonthly      Amount              `json:"projected_monthly_micros"`
	DailyWindow           window.UsageWindow  `json:"daily_window"`
	MonthlyWindow         window.UsageWindow  `json:"monthly_window"`
	Status                health.Status       `json:"status"`
	RecentRecords         []window.UsageEvent `json:"recent_records"`
}

// Governor enforces the daily and monthly spend ceilings. Both windows live
// in the injected CounterStore; a Governor holds no spend state itself.
type Governor struct {
	day    *window.Accountant
	month  *window.Accountant
	store  store.CounterStore
	logger *slog.Logger

	mu  sync.RWMutex
	cfg Config

	// countKey tracks the number of recorded calls in the current month,
	// for the average-cost figure.
	countPrefix string

	// warnLimiter throttles fail-open warnings so a store outage does not
	// flood the log.
	warnLimiter *rate.Limiter
}

// Option customizes a Governor.
type Option func(*options)

type options struct {
	logger *slog.Logger
	clock  func(ctx context.Context) time.Time
}

// WithLogger sets the governor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClockFunc overrides the accountant clocks; intended for tests.
func WithClockFunc(now func(ctx context.Context) time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New creates a spend governor on the given store.
func New(s store.CounterStore, cfg Config, opts ...Option) (*Governor, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("spend governor config: %w", err)
	}
	cfg = cfg.withDefaults()

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default().With("component", "quota.spend")
	}

	var acctOpts []window.Option
	if o.clock != nil {
		acctOpts = append(acctOpts, window.WithClockFunc(o.clock))
	}

	day, err := window.NewAccountant(s, window.PeriodDay, "spend", cfg.DailyLimit.Micros(), acctOpts...)
	if err != nil {
		return nil, err
	}
	month, err := window.NewAccountant(s, window.PeriodMonth, "spend", cfg.MonthlyLimit.Micros(), acctOpts...)
	if err != nil {
		return nil, err
	}

	return &Governor{
		day:         day,
		month:       month,
		store:       s,
		cfg:         cfg,
		countPrefix: "spend:requests",
		warnLimiter: rate.NewLimiter(rate.Every(10*time.Second), 1),
		logger:      o.logger,
	}, nil
}

// CheckBudget is the strict pre-admission gate. The estimated cost must fit
// inside the daily window, the monthly window, and the per-event maximum;
// any violation denies the call before it is issued.
//
// Fail-open: if the store cannot be read, the call is permitted and a
// throttled warning is logged. See the package comment for the rationale.
func (g *Governor) CheckBudget(ctx context.Context, estimated Amount) CheckResult {
	if estimated < 0 {
		return CheckResult{
			CanProceed:   false,
			WarningLevel: health.StatusHealthy,
			Message:      "estimated cost cannot be negative",
		}
	}

	g.mu.RLock()
	cfg := g.cfg
	g.mu.RUnlock()

	if cfg.PerEventMax > 0 && estimated > cfg.PerEventMax {
		return CheckResult{
			CanProceed:   false,
			WarningLevel: health.StatusBlocked,
			Message: fmt.Sprintf("estimated cost %s exceeds per-call maximum %s",
				estimated, cfg.PerEventMax),
		}
	}

	dayWin, err := g.day.CurrentWindow(ctx)
	if err != nil {
		return g.failOpen(err)
	}
	monthWin, err := g.month.CurrentWindow(ctx)
	if err != nil {
		return g.failOpen(err)
	}

	daySpent := Amount(dayWin.Count)
	monthSpent := Amount(monthWin.Count)

	if daySpent+estimated > cfg.DailyLimit {
		return CheckResult{
			CanProceed:   false,
			WarningLevel: health.StatusBlocked,
			Message: fmt.Sprintf("daily budget exhausted: %s spent of %s, estimate %s",
				daySpent, cfg.DailyLimit, estimated),
		}
	}
	if monthSpent+estimated > cfg.MonthlyLimit {
		return CheckResult{
			CanProceed:   false,
			WarningLevel: health.StatusBlocked,
			Message: fmt.Sprintf("monthly budget exhausted: %s spent of %s, estimate %s",
				monthSpent, cfg.MonthlyLimit, estimated),
		}
	}

	// Report the tier of the more constrained window so callers can start
	// slowing down before hitting the wall.
	level := health.Classify(dayWin.UtilizationPercent(), false, cfg.Thresholds)
	if m := health.Classify(monthWin.UtilizationPercent(), false, cfg.Thresholds); m > level {
		level = m
	}

	return CheckResult{
		CanProceed:   true,
		WarningLevel: level,
		Message:      fmt.Sprintf("within budget: day %s of %s, month %s of %s", daySpent, cfg.DailyLimit, monthSpent, cfg.MonthlyLimit),
	}
}

// RecordSpend records the provider-reported actual cost of a completed call
// against both windows. Each window update is a single atomic increment.
//
// The two increments are not transactional: when the daily write lands but
// the monthly one fails, the daily total runs ahead of the monthly total
// until the caller retries. The daily write is never rolled back — the
// stricter daily gate keeps its conservative count, and the returned error
// tells the caller the recording is incomplete. Transient store failures are
// absorbed by the retrying store adapter before they reach this path.
//
// An actual cost above the per-event maximum is recorded anyway, with an
// explicit override log: the money is already spent, and silently dropping
// it would corrupt the books.
func (g *Governor) RecordSpend(ctx context.Context, actual Amount, metadata map[string]string) error {
	if actual < 0 {
		return fmt.Errorf("actual cost cannot be negative, got %s", actual)
	}

	g.mu.RLock()
	perEventMax := g.cfg.PerEventMax
	g.mu.RUnlock()

	if perEventMax > 0 && actual > perEventMax {
		g.logger.Warn("recording spend above per-call maximum",
			"actual", actual.String(),
			"per_event_max", perEventMax.String(),
			"event", "overdraft_override",
		)
	}

	if _, err := g.day.RecordUsage(ctx, actual.Micros(), metadata); err != nil {
		g.warnStoreFailure(err)
		return fmt.Errorf("recording daily spend: %w", err)
	}
	if _, err := g.month.RecordUsage(ctx, actual.Micros(), metadata); err != nil {
		g.warnStoreFailure(err)
		return fmt.Errorf("recording monthly spend: %w", err)
	}

	now := g.month.Now(ctx)
	if _, err := g.store.AtomicIncrement(ctx, window.PeriodMonth.Key(g.countPrefix, now), 1); err != nil {
		// The request count only feeds the average-cost figure; losing one
		// is not worth failing the recording.
		g.warnStoreFailure(err)
	}

	return nil
}

// CostBreakdown returns the spend snapshot across both windows.
func (g *Governor) CostBreakdown(ctx context.Context) (CostBreakdown, error) {
	g.mu.RLock()
	cfg := g.cfg
	g.mu.RUnlock()

	dayWin, err := g.day.CurrentWindow(ctx)
	if err != nil {
		return CostBreakdown{}, err
	}
	monthWin, err := g.month.CurrentWindow(ctx)
	if err != nil {
		return CostBreakdown{}, err
	}

	now := g.month.Now(ctx)
	count, _, err := g.store.Get(ctx, window.PeriodMonth.Key(g.countPrefix, now))
	if err != nil {
		return CostBreakdown{}, err
	}

	monthSpent := Amount(monthWin.Count)

	var avg Amount
	if count > 0 {
		avg = Amount(monthWin.Count / count)
	}

	status := health.Classify(dayWin.UtilizationPercent(), false, cfg.Thresholds)
	if m := health.Classify(monthWin.UtilizationPercent(), false, cfg.Thresholds); m > status {
		status = m
	}

	return CostBreakdown{
		Daily:                 Amount(dayWin.Count),
		Monthly:               monthSpent,
		DailyLimit:            cfg.DailyLimit,
		MonthlyLimit:          cfg.MonthlyLimit,
		RequestCount:          count,
		AverageCostPerRequest: avg,
		ProjectedMonthly:      projectMonthly(monthSpent, now),
		DailyWindow:           dayWin,
		MonthlyWindow:         monthWin,
		Status:                status,
		RecentRecords:         g.day.RecentEvents(20),
	}, nil
}

// RecentEvents returns up to n recent spend records, newest first.
func (g *Governor) RecentEvents(n int) []window.UsageEvent {
	return g.day.RecentEvents(n)
}

// ResetDailyCosts force-zeroes the daily window only; the monthly total is
// untouched. Administrative override, logged as such.
func (g *Governor) ResetDailyCosts(ctx context.Context) error {
	if err := g.day.ResetWindow(ctx); err != nil {
		return err
	}
	g.logger.Warn("daily spend reset by administrative action")
	return nil
}

// UpdateConfig replaces the static limits, for config hot-reload.
func (g *Governor) UpdateConfig(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("spend governor config: %w", err)
	}
	cfg = cfg.withDefaults()

	g.mu.Lock()
	g.cfg = cfg
	g.mu.Unlock()

	if err := g.day.SetLimit(cfg.DailyLimit.Micros()); err != nil {
		return err
	}
	if err := g.month.SetLimit(cfg.MonthlyLimit.Micros()); err != nil {
		return err
	}

	g.logger.Info("spend limits updated",
		"daily_limit", cfg.DailyLimit.String(),
		"monthly_limit", cfg.MonthlyLimit.String(),
	)
	return nil
}

// failOpen builds the permissive result used when the store is unreachable.
func (g *Governor) failOpen(err error) CheckResult {
	g.warnStoreFailure(err)
	return CheckResult{
		CanProceed:   true,
		WarningLevel: health.StatusWarning,
		Message:      "accounting store unavailable, admitting without budget check",
	}
}

func (g *Governor) warnStoreFailure(err error) {
	if !g.warnLimiter.Allow() {
		return
	}
	if errors.Is(err, store.ErrUnavailable) {
		g.logger.Warn("counter store unavailable, spend governor failing open", "error", err)
		return
	}
	g.logger.Warn("counter store error in spend governor", "error", err)
}

// projectMonthly linearly extrapolates the month-end total from the run rate
// of the elapsed days: (spent / daysElapsed) × daysInMonth. The current
// partial day counts as elapsed, matching a run-rate view that updates
// through the day.
func projectMonthly(spent Amount, now time.Time) Amount {
	start, end := window.PeriodMonth.Bounds(now)
	daysInMonth := int64(end.Sub(start).Hours() / 24)
	daysElapsed := int64(now.Sub(start).Hours()/24) + 1
	if daysElapsed <= 0 {
		return spent
	}
	return Amount(spent.Micros() / daysElapsed * daysInMonth)
}

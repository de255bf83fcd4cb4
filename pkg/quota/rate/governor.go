package rate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"legalis-hq/themis/pkg/quota/health"
	"legalis-hq/themis/pkg/quota/store"
	"legalis-hq/themis/pkg/quota/window"
)

// Config contains the static limits for the rate governor.
type Config struct {
	// HardLimit is the provider's hourly ceiling. Utilization is computed
	// against this value.
	HardLimit int64

	// BufferLimit is the safety margin below the hard ceiling at which
	// admission stops (e.g. 4500 of a 5000 hard limit). Zero means no
	// buffer: admission stops at the hard limit.
	BufferLimit int64

	// Thresholds are the warning/critical tier boundaries.
	Thresholds health.Thresholds
}

func (c Config) validate() error {
	if c.HardLimit <= 0 {
		return fmt.Errorf("hard limit must be positive, got %d", c.HardLimit)
	}
	if c.BufferLimit < 0 || c.BufferLimit > c.HardLimit {
		return fmt.Errorf("buffer limit %d out of range [0, %d]", c.BufferLimit, c.HardLimit)
	}
	return nil
}

// withDefaults fills the zero buffer and thresholds.
func (c Config) withDefaults() Config {
	if c.BufferLimit == 0 {
		c.BufferLimit = c.HardLimit
	}
	if c.Thresholds == (health.Thresholds{}) {
		c.Thresholds = health.DefaultThresholds()
	}
	return c
}

// UsageStats is the rate governor's numeric snapshot.
type UsageStats struct {
	TotalRequests        int64         `json:"total_requests"`
	Limit                int64         `json:"limit"`
	Remaining            int64         `json:"remaining"`
	UtilizationPercent   float64       `json:"utilization_percent"`
	WindowStart          time.Time     `json:"window_start"`
	WindowEnd            time.Time     `json:"window_end"`
	LastRequestTime      time.Time     `json:"last_request_time,omitzero"`
	ProjectedPeriodTotal int64         `json:"projected_period_total"`
	Blocked              bool          `json:"blocked"`
	BlockedUntil         time.Time     `json:"blocked_until,omitzero"`
	Status               health.Status `json:"status"`
}

// Governor enforces the hourly call quota. All shared state lives in the
// injected CounterStore; a Governor itself is safe to construct per process.
type Governor struct {
	acct   *window.Accountant
	store  store.CounterStore
	logger *slog.Logger

	mu  sync.RWMutex
	cfg Config

	blockKey string
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

// WithClockFunc overrides the accountant clock; intended for tests.
func WithClockFunc(now func(ctx context.Context) time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New creates a rate governor on the given store.
func New(s store.CounterStore, cfg Config, opts ...Option) (*Governor, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("rate governor config: %w", err)
	}
	cfg = cfg.withDefaults()

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default().With("component", "quota.rate")
	}

	var acctOpts []window.Option
	if o.clock != nil {
		acctOpts = append(acctOpts, window.WithClockFunc(o.clock))
	}

	acct, err := window.NewAccountant(s, window.PeriodHour, "rate", cfg.HardLimit, acctOpts...)
	if err != nil {
		return nil, err
	}

	return &Governor{
		acct:     acct,
		store:    s,
		cfg:      cfg,
		blockKey: "rate:provider_block",
		logger:   o.logger,
	}, nil
}

// IsRateLimited reports whether the caller must not issue the external call
// right now: either the buffer limit is reached or an authoritative provider
// block is in force.
//
// Fail-closed: if the store cannot be read, this returns true. Under-counting
// against the provider's hard ceiling is the one failure mode this governor
// must never allow.
func (g *Governor) IsRateLimited(ctx context.Context) bool {
	g.mu.RLock()
	buffer := g.cfg.BufferLimit
	g.mu.RUnlock()

	if _, until, blocked := g.providerBlock(ctx); blocked {
		g.logger.Debug("admission denied by provider block", "blocked_until", until)
		return true
	}

	w, err := g.acct.CurrentWindow(ctx)
	if err != nil {
		g.logger.Error("store unreachable, failing closed", "error", err)
		return true
	}

	return w.Count >= buffer
}

// Consume records n calls that actually reached the provider. Callers must
// have checked IsRateLimited beforehand; Consume itself never rejects, so a
// call that was already issued is always counted.
func (g *Governor) Consume(ctx context.Context, n int64) error {
	if n <= 0 {
		return fmt.Errorf("consume count must be positive, got %d", n)
	}

	if _, err := g.acct.RecordUsage(ctx, n, nil); err != nil {
		// The call already happened; the count is lost only if the retry
		// inside the store adapter also failed. Surface it so operators
		// know local accounting is now an undercount.
		return fmt.Errorf("recording consumed calls: %w", err)
	}
	return nil
}

// UsageStats returns the governor's snapshot. On store failure the error is
// returned; snapshot consumers are administrative and fail-closed semantics
// do not apply to reads.
func (g *Governor) UsageStats(ctx context.Context) (UsageStats, error) {
	g.mu.RLock()
	cfg := g.cfg
	g.mu.RUnlock()

	w, err := g.acct.CurrentWindow(ctx)
	if err != nil {
		return UsageStats{}, err
	}

	now := g.acct.Now(ctx)
	elapsed := now.Sub(w.Start)
	period := w.End.Sub(w.Start)

	_, blockedUntil, blocked := g.providerBlock(ctx)
	limited := blocked || w.Count >= cfg.BufferLimit

	stats := UsageStats{
		TotalRequests:        w.Count,
		Limit:                cfg.HardLimit,
		Remaining:            w.Remaining(),
		UtilizationPercent:   w.UtilizationPercent(),
		WindowStart:          w.Start,
		WindowEnd:            w.End,
		ProjectedPeriodTotal: int64(health.ProjectedTotal(float64(w.Count), elapsed, period)),
		Blocked:              limited,
		BlockedUntil:         blockedUntil,
		Status:               health.Classify(w.UtilizationPercent(), limited, cfg.Thresholds),
	}

	if last, ok := g.acct.LastEvent(); ok {
		stats.LastRequestTime = last.Timestamp
	}

	return stats, nil
}

// ResetTime returns when the current window rolls over. A provider block
// extends the reset to the provider-declared time when that is later.
func (g *Governor) ResetTime(ctx context.Context) time.Time {
	now := g.acct.Now(ctx)
	_, end := window.PeriodHour.Bounds(now)

	if _, until, blocked := g.providerBlock(ctx); blocked && until.After(end) {
		return until
	}
	return end
}

// ReportProviderRejection applies an authoritative rate-limit rejection from
// the provider. Local accounting predicted wrongly (shared quota, clock
// drift); the provider's signal is ground truth. The block and its
// provider-declared reset time are written through the shared store so every
// stateless handler process observes them.
//
// The local counter is not rolled back; it simply resets at the next window.
func (g *Governor) ReportProviderRejection(ctx context.Context, resetAt time.Time) error {
	now := g.acct.Now(ctx)

	ttl := resetAt.Sub(now)
	if ttl <= 0 {
		// No usable reset time from the provider: block until the local
		// window rolls over.
		_, end := window.PeriodHour.Bounds(now)
		resetAt = end
		ttl = end.Sub(now)
	}

	g.logger.Warn("authoritative provider rejection, overriding local accounting",
		"blocked_until", resetAt,
		"event", "trust_correction",
	)

	if err := g.store.SetWithExpiry(ctx, g.blockKey, resetAt.UTC().Unix(), ttl); err != nil {
		return fmt.Errorf("recording provider block: %w", err)
	}
	return nil
}

// ResetWindow force-zeroes the current window counter and lifts any provider
// block. Administrative override only.
func (g *Governor) ResetWindow(ctx context.Context) error {
	if err := g.acct.ResetWindow(ctx); err != nil {
		return err
	}
	// Lifting the block is a value write, not a delete; the immediate expiry
	// makes it vanish from every process's view.
	if err := g.store.SetWithExpiry(ctx, g.blockKey, 0, time.Millisecond); err != nil {
		return fmt.Errorf("clearing provider block: %w", err)
	}
	g.logger.Warn("rate window reset by administrative action")
	return nil
}

// RecentEvents returns up to n recent consumption events, newest first.
func (g *Governor) RecentEvents(n int) []window.UsageEvent {
	return g.acct.RecentEvents(n)
}

// UpdateConfig replaces the static limits, for config hot-reload.
func (g *Governor) UpdateConfig(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("rate governor config: %w", err)
	}
	cfg = cfg.withDefaults()

	g.mu.Lock()
	g.cfg = cfg
	g.mu.Unlock()

	if err := g.acct.SetLimit(cfg.HardLimit); err != nil {
		return err
	}

	g.logger.Info("rate limits updated",
		"hard_limit", cfg.HardLimit,
		"buffer_limit", cfg.BufferLimit,
	)
	return nil
}

// providerBlock reads the shared block flag. The stored value is the
// provider-declared reset time in unix seconds.
func (g *Governor) providerBlock(ctx context.Context) (int64, time.Time, bool) {
	val, ok, err := g.store.Get(ctx, g.blockKey)
	if err != nil {
		// Fail closed here too: an unreadable block flag is treated as set.
		g.logger.Error("cannot read provider block flag, failing closed", "error", err)
		return 0, time.Time{}, true
	}
	if !ok || val == 0 {
		return 0, time.Time{}, false
	}
	return val, time.Unix(val, 0).UTC(), true
}

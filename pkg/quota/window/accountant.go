package window

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"legalis-hq/themis/pkg/quota/store"
)

// UsageWindow is one accounting period with its current count.
type UsageWindow struct {
	// Start is the inclusive window start.
	Start time.Time `json:"window_start"`

	// End is the exclusive window end; the counter resets here.
	End time.Time `json:"window_end"`

	// Count is the usage accumulated so far in this window.
	Count int64 `json:"count"`

	// Limit is the configured capacity for this window.
	Limit int64 `json:"limit"`
}

// Remaining returns the capacity left, floored at zero.
func (w UsageWindow) Remaining() int64 {
	if w.Count >= w.Limit {
		return 0
	}
	return w.Limit - w.Count
}

// UtilizationPercent returns consumed capacity as a percentage of the limit.
func (w UsageWindow) UtilizationPercent() float64 {
	if w.Limit <= 0 {
		return 0
	}
	return 100 * float64(w.Count) / float64(w.Limit)
}

// Accountant performs the window-aware accounting for one governor window:
// it derives the active window from the clock, increments its counter
// atomically, and keeps a bounded log of recent events.
//
// An Accountant holds no counter state itself; the only shared state is the
// injected CounterStore, which is the explicit cross-process contract.
type Accountant struct {
	store  store.CounterStore
	period Period
	prefix string
	limit  atomic.Int64
	events *EventLog
	now    func(ctx context.Context) time.Time
	logger *slog.Logger
}

// Option customizes an Accountant.
type Option func(*Accountant)

// WithEventCapacity sets the recent-events ring capacity (default 100).
func WithEventCapacity(n int) Option {
	return func(a *Accountant) { a.events = NewEventLog(n) }
}

// WithClockFunc overrides the clock. Intended for tests and for callers that
// already have a synchronized time source.
func WithClockFunc(now func(ctx context.Context) time.Time) Option {
	return func(a *Accountant) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Accountant) { a.logger = logger }
}

// NewAccountant creates an accountant for one window of the given period,
// storing its counters under prefix. The limit must be positive.
//
// When the store implements store.Clock, window identity is derived from the
// store's clock so all processes agree on it; otherwise local UTC is used.
func NewAccountant(s store.CounterStore, period Period, prefix string, limit int64, opts ...Option) (*Accountant, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("invalid period %q", string(period))
	}
	if prefix == "" {
		return nil, fmt.Errorf("key prefix cannot be empty")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	a := &Accountant{
		store:  s,
		period: period,
		prefix: prefix,
		events: NewEventLog(100),
		logger: slog.Default().With("component", "quota.window", "period", string(period)),
	}
	a.limit.Store(limit)

	if clock, ok := s.(store.Clock); ok {
		a.now = func(ctx context.Context) time.Time {
			t, err := clock.Now(ctx)
			if err != nil {
				// Degraded but functional: a skewed window beats no window.
				return time.Now().UTC()
			}
			return t
		}
	} else {
		a.now = func(ctx context.Context) time.Time { return time.Now().UTC() }
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Period returns the accountant's window period.
func (a *Accountant) Period() Period { return a.period }

// Limit returns the configured window capacity.
func (a *Accountant) Limit() int64 { return a.limit.Load() }

// SetLimit updates the configured capacity. Used by config hot-reload; the
// stored counters are untouched.
func (a *Accountant) SetLimit(limit int64) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}
	a.limit.Store(limit)
	return nil
}

// Now returns the accountant's current time (store clock when available).
func (a *Accountant) Now(ctx context.Context) time.Time {
	return a.now(ctx)
}

// CurrentWindow returns the active window and its count. The window identity
// is computed from the clock, so an expired window is superseded implicitly;
// no state transition happens here.
func (a *Accountant) CurrentWindow(ctx context.Context) (UsageWindow, error) {
	now := a.now(ctx)
	start, end := a.period.Bounds(now)

	count, _, err := a.store.Get(ctx, a.period.Key(a.prefix, now))
	if err != nil {
		return UsageWindow{}, fmt.Errorf("reading window counter: %w", err)
	}

	return UsageWindow{Start: start, End: end, Count: count, Limit: a.limit.Load()}, nil
}

// RecordUsage atomically adds amount to the active window's counter and
// appends a UsageEvent to the ring. It returns the window as observed after
// the increment.
func (a *Accountant) RecordUsage(ctx context.Context, amount int64, metadata map[string]string) (UsageWindow, error) {
	if amount < 0 {
		return UsageWindow{}, fmt.Errorf("amount must be non-negative, got %d", amount)
	}

	now := a.now(ctx)
	start, end := a.period.Bounds(now)

	count, err := a.store.AtomicIncrement(ctx, a.period.Key(a.prefix, now), amount)
	if err != nil {
		return UsageWindow{}, fmt.Errorf("incrementing window counter: %w", err)
	}

	a.events.Append(now, amount, metadata)

	return UsageWindow{Start: start, End: end, Count: count, Limit: a.limit.Load()}, nil
}

// ResetWindow force-zeroes the active window's counter. This is an
// administrative override, logged as such; natural rollover never calls it.
//
// The zero value is written with an expiry at the window end so the override
// cannot leak into a later window.
func (a *Accountant) ResetWindow(ctx context.Context) error {
	now := a.now(ctx)
	_, end := a.period.Bounds(now)

	if err := a.store.SetWithExpiry(ctx, a.period.Key(a.prefix, now), 0, end.Sub(now)); err != nil {
		return fmt.Errorf("resetting window counter: %w", err)
	}

	a.logger.Warn("window counter reset by administrative action",
		"key_prefix", a.prefix,
		"window_end", end,
	)
	return nil
}

// RecentEvents returns up to n recent usage events, newest first.
func (a *Accountant) RecentEvents(n int) []UsageEvent {
	return a.events.Recent(n)
}

// LastEvent returns the most recent usage event, if any.
func (a *Accountant) LastEvent() (UsageEvent, bool) {
	return a.events.Last()
}

package store

import (
	"context"
	"log/slog"
	"time"
)

// Retrying wraps a CounterStore with the bounded retry policy for transient
// failures: exactly one retry after a short backoff, then the error is
// surfaced wrapped in ErrUnavailable.
//
// This adapter is the only place in the quota core where a retry happens.
// The governors treat ErrUnavailable per their own fail-closed or fail-open
// policy and never retry themselves.
type Retrying struct {
	inner   CounterStore
	backoff time.Duration
	logger  *slog.Logger
}

// RetryingOption customizes a Retrying store.
type RetryingOption func(*Retrying)

// WithBackoff sets the delay between the failed call and its single retry.
func WithBackoff(d time.Duration) RetryingOption {
	return func(r *Retrying) { r.backoff = d }
}

// WithRetryLogger sets the logger used for retry warnings.
func WithRetryLogger(logger *slog.Logger) RetryingOption {
	return func(r *Retrying) { r.logger = logger }
}

// NewRetrying wraps inner with the single-retry policy.
func NewRetrying(inner CounterStore, opts ...RetryingOption) *Retrying {
	r := &Retrying{
		inner:   inner,
		backoff: 50 * time.Millisecond,
		logger:  slog.Default().With("component", "quota.store"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AtomicIncrement implements CounterStore.
func (r *Retrying) AtomicIncrement(ctx context.Context, key string, amount int64) (int64, error) {
	var value int64
	err := r.retry(ctx, "increment", key, func() error {
		var err error
		value, err = r.inner.AtomicIncrement(ctx, key, amount)
		return err
	})
	return value, err
}

// Get implements CounterStore.
func (r *Retrying) Get(ctx context.Context, key string) (int64, bool, error) {
	var (
		value int64
		ok    bool
	)
	err := r.retry(ctx, "get", key, func() error {
		var err error
		value, ok, err = r.inner.Get(ctx, key)
		return err
	})
	return value, ok, err
}

// SetWithExpiry implements CounterStore.
func (r *Retrying) SetWithExpiry(ctx context.Context, key string, value int64, ttl time.Duration) error {
	return r.retry(ctx, "set", key, func() error {
		return r.inner.SetWithExpiry(ctx, key, value, ttl)
	})
}

// Now passes through to the inner store's clock when it has one, so wrapping
// does not hide the shared clock.
func (r *Retrying) Now(ctx context.Context) (time.Time, error) {
	if clock, ok := r.inner.(Clock); ok {
		return clock.Now(ctx)
	}
	return time.Now().UTC(), nil
}

// Close closes the wrapped store.
func (r *Retrying) Close() error {
	return r.inner.Close()
}

func (r *Retrying) retry(ctx context.Context, op, key string, fn func() error) error {
	firstErr := fn()
	if firstErr == nil {
		return nil
	}

	r.logger.Warn("store operation failed, retrying once",
		"operation", op,
		"key", key,
		"error", firstErr,
	)

	select {
	case <-time.After(r.backoff):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := fn(); err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return &unavailableError{err: err}
}

type unavailableError struct {
	err error
}

func (e *unavailableError) Error() string {
	return ErrUnavailable.Error() + ": " + e.err.Error()
}

func (e *unavailableError) Unwrap() error { return e.err }

// Is reports ErrUnavailable so errors.Is(err, ErrUnavailable) works on
// wrapped failures.
func (e *unavailableError) Is(target error) bool { return target == ErrUnavailable }

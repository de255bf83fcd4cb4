package store

import (
	"context"
	"errors"
	"time"
)

// CounterStore is the atomic counter/key-value service the governors consume.
// Implementations must be safe for concurrent use from multiple goroutines
// and, for shared backends, from multiple processes.
type CounterStore interface {
	// AtomicIncrement adds amount to the counter at key and returns the new
	// value. The read-modify-write must be a single atomic operation; two
	// separate store calls would lose updates under concurrency.
	AtomicIncrement(ctx context.Context, key string, amount int64) (int64, error)

	// Get returns the value at key. The second return value is false when
	// the key does not exist (or has expired).
	Get(ctx context.Context, key string) (int64, bool, error)

	// SetWithExpiry sets key to value, expiring after ttl. A ttl of zero
	// means no expiry.
	SetWithExpiry(ctx context.Context, key string, value int64, ttl time.Duration) error

	// Close releases any resources held by the store.
	Close() error
}

// Clock is an optionally implemented extension: backends with an externally
// synchronized notion of time (Redis TIME) expose it so every process derives
// window identity from the same clock rather than from local wall time.
type Clock interface {
	// Now returns the store's current time.
	Now(ctx context.Context) (time.Time, error)
}

// ErrUnavailable is returned when the backend is unreachable or timed out,
// after the adapter-level retry has been exhausted. Governors translate it
// into their fail-closed or fail-open policy.
var ErrUnavailable = errors.New("counter store unavailable")

package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements CounterStore with in-process storage.
// This is the default backend and the one used by tests. All data is lost
// when the process exits, and nothing is shared across processes.
//
// MemoryStore is thread-safe using sync.Mutex; every operation is a single
// critical section, which makes AtomicIncrement trivially atomic.
type MemoryStore struct {
	entries map[string]memoryEntry
	mu      sync.Mutex

	cleanupInterval time.Duration
	done            chan struct{}
	closeOnce       sync.Once
}

type memoryEntry struct {
	value   int64
	expires time.Time // zero means no expiry
}

// MemoryStoreConfig configures the memory store.
type MemoryStoreConfig struct {
	// CleanupInterval is how often expired entries are swept.
	// Default: 1 minute.
	CleanupInterval time.Duration
}

// NewMemoryStore creates an in-memory counter store with default settings.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithConfig(MemoryStoreConfig{})
}

// NewMemoryStoreWithConfig creates an in-memory counter store with custom
// configuration.
func NewMemoryStoreWithConfig(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}

	s := &MemoryStore{
		entries:         make(map[string]memoryEntry),
		cleanupInterval: cfg.CleanupInterval,
		done:            make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// AtomicIncrement adds amount to the counter at key and returns the new value.
// A missing or expired key starts from zero.
func (s *MemoryStore) AtomicIncrement(ctx context.Context, key string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || ent.expired(time.Now()) {
		ent = memoryEntry{}
	}

	ent.value += amount
	s.entries[key] = ent
	return ent.value, nil
}

// Get returns the value at key, or false when the key is absent or expired.
func (s *MemoryStore) Get(ctx context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || ent.expired(time.Now()) {
		return 0, false, nil
	}
	return ent.value, true, nil
}

// SetWithExpiry sets key to value, expiring after ttl.
func (s *MemoryStore) SetWithExpiry(ctx context.Context, key string, value int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent := memoryEntry{value: value}
	if ttl > 0 {
		ent.expires = time.Now().Add(ttl)
	}
	s.entries[key] = ent
	return nil
}

// Close stops the background cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// Size returns the number of live entries. Useful for tests and monitoring.
func (s *MemoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	n := 0
	for _, ent := range s.entries {
		if !ent.expired(now) {
			n++
		}
	}
	return n
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// cleanupLoop periodically drops expired entries so superseded windows do not
// accumulate forever.
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, ent := range s.entries {
				if ent.expired(now) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}

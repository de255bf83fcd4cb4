// Package store defines the CounterStore contract the quota governors are
// built on, plus the shipped backends.
//
// The entire correctness story of the quota core reduces to three primitives
// being atomic and durable across processes:
//
//   - AtomicIncrement(key, amount) returning the post-increment value
//   - Get(key)
//   - SetWithExpiry(key, value, ttl)
//
// Backends:
//
//   - MemoryStore: in-process, the default for tests and single-instance runs
//   - RedisStore: shared across processes; also serves as the reference clock
//   - SQLiteStore: durable single-instance storage
//
// Retrying wraps any backend with the bounded single-retry policy for
// transient failures. Governors never retry themselves; this adapter is the
// only place a retry happens.
package store

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements CounterStore on a shared Redis instance. This is the
// backend for multi-process deployments: INCRBY gives the atomic
// increment-and-read primitive, and the Redis TIME command provides a single
// clock every process agrees on, so window identity does not depend on local
// clock skew.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// RedisStoreOption customizes a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix namespaces all keys under the given prefix.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

// NewRedisStore creates a counter store backed by the given Redis client.
func NewRedisStore(rdb *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "themis",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AtomicIncrement adds amount to the counter at key and returns the new value.
func (s *RedisStore) AtomicIncrement(ctx context.Context, key string, amount int64) (int64, error) {
	val, err := s.rdb.IncrBy(ctx, s.key(key), amount).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incrby %s: %w", key, err)
	}
	return val, nil
}

// Get returns the value at key, or false when the key does not exist.
func (s *RedisStore) Get(ctx context.Context, key string) (int64, bool, error) {
	val, err := s.rdb.Get(ctx, s.key(key)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// SetWithExpiry sets key to value, expiring after ttl.
func (s *RedisStore) SetWithExpiry(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Now implements Clock using the Redis server's clock, so all processes
// sharing this store derive the same window identity regardless of local
// clock skew.
func (s *RedisStore) Now(ctx context.Context) (time.Time, error) {
	t, err := s.rdb.Time(ctx).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("redis time: %w", err)
	}
	return t.UTC(), nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

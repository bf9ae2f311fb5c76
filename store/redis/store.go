// Package redis implements strategy.Store on Redis. Active-slot sets are
// Sorted Sets scored by expiry, window counters are plain keys with a
// TTL, and both mutations run as Lua scripts so they are atomic relative
// to every other worker sharing the instance.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/throttle/strategy"
)

// Compile-time interface check.
var _ strategy.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store implements strategy.Store backed by Redis.
type Store struct {
	client goredis.Cmdable
	logger *slog.Logger
}

// New creates a Redis-backed store. The caller owns the Redis client
// lifecycle.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.Cmdable { return s.client }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// AcquireSlot implements strategy.Store.
func (s *Store) AcquireSlot(ctx context.Context, key, jid string, limit int, ttl time.Duration) (bool, error) {
	nowMs := time.Now().UnixMilli()
	res, err := acquireScript.Run(ctx, s.client,
		[]string{slotsKey(key)},
		nowMs, ttl.Milliseconds(), limit, jid,
	).Int()
	if err != nil {
		return false, fmt.Errorf("throttle/redis: acquire slot: %w", err)
	}
	return res == 1, nil
}

// ReleaseSlot implements strategy.Store.
func (s *Store) ReleaseSlot(ctx context.Context, key, jid string) error {
	if err := s.client.ZRem(ctx, slotsKey(key), jid).Err(); err != nil {
		return fmt.Errorf("throttle/redis: release slot: %w", err)
	}
	return nil
}

// IncrWindow implements strategy.Store.
func (s *Store) IncrWindow(ctx context.Context, key string, period time.Duration) (int64, error) {
	n, err := incrWindowScript.Run(ctx, s.client,
		[]string{windowKey(key)},
		period.Milliseconds(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("throttle/redis: incr window: %w", err)
	}
	return n, nil
}

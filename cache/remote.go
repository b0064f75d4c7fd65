package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Remote is a Redis-backed cache layer shared between processes. All
// operations fail soft: when Redis is unreachable reads report a miss and
// writes are discarded, so an unavailable cache never fails a request.
type Remote struct {
	rdb    *redis.Client
	flight *flight
}

// NewRemote creates a Redis-backed cache.
func NewRemote(addr, password string, db int) *Remote {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Remote{rdb: rdb, flight: newFlight()}
}

// Get retrieves a value by key. It reports a miss when the key is absent or
// Redis is unreachable.
func (r *Remote) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		// Fail soft on connection errors.
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a value under key with the given TTL. Errors are discarded.
func (r *Remote) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	_ = r.rdb.Set(ctx, key, val, ttl).Err()
	return nil
}

// Fetch returns the cached value for key, running fill once on a miss.
func (r *Remote) Fetch(ctx context.Context, key string, ttl time.Duration, fill func(context.Context) ([]byte, error)) ([]byte, error) {
	if v, ok, _ := r.Get(ctx, key); ok {
		return v, nil
	}
	return r.flight.do(ctx, key, func(ctx context.Context) ([]byte, error) {
		val, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		_ = r.Set(ctx, key, val, ttl)
		return val, nil
	})
}

// Ping checks the Redis connection.
func (r *Remote) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (r *Remote) Close() error {
	return r.rdb.Close()
}

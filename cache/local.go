package cache

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Local is an in-process cache backed by ristretto.
type Local struct {
	rc     *ristretto.Cache[string, []byte]
	flight *flight
}

// NewLocal creates a Local cache holding up to maxEntries values (each entry
// has a cost of 1).
func NewLocal(maxEntries int64) (*Local, error) {
	rc, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Local{rc: rc, flight: newFlight()}, nil
}

// Get retrieves a value by key.
func (l *Local) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := l.rc.Get(key)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

// Set stores a value under key with the given TTL.
func (l *Local) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	l.rc.SetWithTTL(key, bytes.Clone(val), 1, ttl)
	l.rc.Wait()
	return nil
}

// Fetch returns the cached value for key, running fill once on a miss.
func (l *Local) Fetch(ctx context.Context, key string, ttl time.Duration, fill func(context.Context) ([]byte, error)) ([]byte, error) {
	if v, ok, _ := l.Get(ctx, key); ok {
		return v, nil
	}
	return l.flight.do(ctx, key, func(ctx context.Context) ([]byte, error) {
		val, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		_ = l.Set(ctx, key, val, ttl)
		return val, nil
	})
}

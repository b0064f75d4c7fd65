// Package cache provides the result cache the calculator service uses to
// memoize finished computations: an in-process layer backed by ristretto,
// an optional shared layer backed by Redis, and a layered combination.
package cache

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// Cache is the caching contract exposed to service code.
type Cache interface {
	// Get retrieves a value by key. The boolean reports a cache hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key with the given TTL. A zero TTL means
	// no automatic expiration.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// Fetch returns the cached value for key. On a miss it runs fill
	// exactly once (concurrent callers for the same key share the result),
	// stores the value, and returns it.
	Fetch(ctx context.Context, key string, ttl time.Duration, fill func(context.Context) ([]byte, error)) ([]byte, error)
}

// flight deduplicates concurrent fills for the same key.
type flight struct {
	mu    sync.Mutex
	calls map[string]*call
}

type call struct {
	done chan struct{}
	val  []byte
	err  error
}

func newFlight() *flight {
	return &flight{calls: make(map[string]*call)}
}

// do runs fill once per key among concurrent callers. Followers block until
// the leader finishes and share its result.
func (f *flight) do(ctx context.Context, key string, fill func(context.Context) ([]byte, error)) ([]byte, error) {
	f.mu.Lock()
	if c, ok := f.calls[key]; ok {
		f.mu.Unlock()
		<-c.done
		if c.err != nil {
			return nil, c.err
		}
		return bytes.Clone(c.val), nil
	}

	c := &call{done: make(chan struct{})}
	f.calls[key] = c
	f.mu.Unlock()

	c.val, c.err = fill(ctx)
	close(c.done)

	f.mu.Lock()
	delete(f.calls, key)
	f.mu.Unlock()

	if c.err != nil {
		return nil, c.err
	}
	return c.val, nil
}

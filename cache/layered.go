package cache

import (
	"context"
	"time"
)

// Layered combines a Local and a Remote cache. Reads check the local layer
// first, then the remote one (promoting hits into the local layer), then run
// the fill function. Writes populate both layers.
type Layered struct {
	local  *Local
	remote *Remote
	flight *flight
}

// NewLayered creates a two-level cache.
func NewLayered(local *Local, remote *Remote) *Layered {
	return &Layered{local: local, remote: remote, flight: newFlight()}
}

// Get checks the local layer, then the remote one. A remote hit is promoted
// into the local layer.
func (c *Layered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, err := c.local.Get(ctx, key); err != nil || ok {
		return v, ok, err
	}
	v, ok, err := c.remote.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	// Promote with zero TTL since the original TTL is unknown here.
	_ = c.local.Set(ctx, key, v, 0)
	return v, true, nil
}

// Set writes the value to the remote layer, then the local one.
func (c *Layered) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	_ = c.remote.Set(ctx, key, val, ttl)
	return c.local.Set(ctx, key, val, ttl)
}

// Fetch follows local, then remote, then fill, deduplicating concurrent
// fills for the same key.
func (c *Layered) Fetch(ctx context.Context, key string, ttl time.Duration, fill func(context.Context) ([]byte, error)) ([]byte, error) {
	if v, ok, _ := c.local.Get(ctx, key); ok {
		return v, nil
	}
	if v, ok, _ := c.remote.Get(ctx, key); ok {
		_ = c.local.Set(ctx, key, v, ttl)
		return v, nil
	}
	return c.flight.do(ctx, key, func(ctx context.Context) ([]byte, error) {
		val, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		_ = c.Set(ctx, key, val, ttl)
		return val, nil
	})
}

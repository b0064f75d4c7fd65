package ratelimit

import (
	"fmt"

	"golang.org/x/time/rate"
)

// Gate wraps a token-bucket limiter for callers that want excess requests
// rejected immediately instead of queued. It is the non-blocking counterpart
// to [SlidingWindow] and is what the throttle interceptors consume.
type Gate struct {
	lim *rate.Limiter
}

// NewGate creates a Gate that sustains rps requests per second with the
// given burst size. It returns an error wrapping [ErrInvalidConfig] when
// rps or burst is not positive.
func NewGate(rps float64, burst int) (*Gate, error) {
	if rps <= 0 {
		return nil, fmt.Errorf("%w: rps must be positive, got %v", ErrInvalidConfig, rps)
	}
	if burst <= 0 {
		return nil, fmt.Errorf("%w: burst must be positive, got %d", ErrInvalidConfig, burst)
	}
	return &Gate{lim: rate.NewLimiter(rate.Limit(rps), burst)}, nil
}

// Allow reports whether a single request may proceed right now.
func (g *Gate) Allow() bool {
	return g.lim.Allow()
}

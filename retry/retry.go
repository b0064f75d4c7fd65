// Package retry provides a generic retry helper with exponential backoff
// and jitter for client-side gRPC invocations. It is never installed inside
// server interceptors; callers opt in around individual calls.
package retry

import (
	"context"
	"math"
	"math/rand"
	"slices"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config controls the retry behaviour of [Do].
type Config struct {
	// Attempts is the maximum number of times fn is called, including the
	// first attempt. Values <= 1 mean no retries.
	Attempts int

	// BaseDelay is the delay before the first retry; each subsequent retry
	// doubles it.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration

	// Jitter randomizes the delay by up to +-Jitter fraction of its value.
	// Zero disables jitter.
	Jitter float64

	// Codes lists the gRPC status codes considered retryable. An empty
	// list means no error is retried.
	Codes []codes.Code
}

// Transient returns a Config tuned for transient server-side pressure:
// ResourceExhausted and Unavailable are retried a few times with jittered
// exponential backoff.
func Transient() Config {
	return Config{
		Attempts:  4,
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  2 * time.Second,
		Jitter:    0.2,
		Codes:     []codes.Code{codes.ResourceExhausted, codes.Unavailable},
	}
}

// Do calls fn up to cfg.Attempts times, retrying only when the returned
// error carries a gRPC status code listed in cfg.Codes. The context is
// honoured between attempts; if it expires while backing off, Do returns
// the context error.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(cfg.Attempts, 1)

	for i := 0; i < attempts; i++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if i == attempts-1 || !retryable(cfg, err) {
			return zero, err
		}
		if err := sleep(ctx, delay(cfg, i)); err != nil {
			return zero, err
		}
	}
	return zero, nil // unreachable
}

// retryable reports whether err carries one of the configured status codes.
func retryable(cfg Config, err error) bool {
	st, ok := status.FromError(err)
	return ok && slices.Contains(cfg.Codes, st.Code())
}

// delay computes the backoff for the given attempt (0-indexed).
func delay(cfg Config, attempt int) time.Duration {
	d := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if ceil := float64(cfg.MaxDelay); cfg.MaxDelay > 0 && d > ceil {
		d = ceil
	}
	if cfg.Jitter > 0 {
		d += d * cfg.Jitter * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package ratelimit provides the admission-control primitives used to pace
// rate-limited work: a blocking sliding-window limiter that queues callers
// until capacity frees up, and a token-bucket gate backed by
// golang.org/x/time/rate for reject-instead-of-wait semantics.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidConfig is wrapped by every configuration error returned from
// limiter constructors. Use errors.Is to detect it.
var ErrInvalidConfig = errors.New("ratelimit: invalid configuration")

// Acquirer is the admission contract: Acquire blocks the caller until it may
// proceed, TryAcquire reports immediately whether a slot is free.
type Acquirer interface {
	Acquire(ctx context.Context) error
	TryAcquire() bool
}

// SlidingWindow admits at most maxCalls callers within any trailing window
// of length period. Callers over quota are suspended until the oldest
// admission ages out of the window, so the observed call rate never exceeds
// maxCalls per period regardless of how many goroutines compete.
//
// The zero value is not usable; construct with [New].
type SlidingWindow struct {
	maxCalls int
	period   time.Duration

	mu  sync.Mutex
	log []time.Time // admission timestamps, oldest first, trimmed to the window

	nowFunc func() time.Time // for testing; defaults to time.Now
}

// New creates a SlidingWindow that admits maxCalls callers per period.
// It returns an error wrapping [ErrInvalidConfig] when maxCalls or period
// is not positive.
func New(maxCalls int, period time.Duration) (*SlidingWindow, error) {
	if maxCalls <= 0 {
		return nil, fmt.Errorf("%w: maxCalls must be positive, got %d", ErrInvalidConfig, maxCalls)
	}
	if period <= 0 {
		return nil, fmt.Errorf("%w: period must be positive, got %v", ErrInvalidConfig, period)
	}
	return &SlidingWindow{
		maxCalls: maxCalls,
		period:   period,
		nowFunc:  time.Now,
	}, nil
}

// Acquire blocks until the caller is admitted or ctx is done. On success
// exactly one admission timestamp has been recorded. On cancellation the
// call log is left exactly as if Acquire had never been called.
//
// The wait is computed from the oldest in-window admission, so a suspended
// caller is released as soon as that admission expires rather than on a
// fixed polling cadence. The check runs in a loop: when several waiters
// wake together only those that still fit the window are admitted, the rest
// compute a fresh wait and suspend again.
func (sw *SlidingWindow) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sw.mu.Lock()
		now := sw.nowFunc()
		sw.prune(now)

		if len(sw.log) < sw.maxCalls {
			sw.log = append(sw.log, now)
			sw.mu.Unlock()
			return nil
		}

		// Window is full: wait until the oldest admission leaves it.
		// The lock is not held while suspended.
		wait := sw.log[0].Add(sw.period).Sub(now)
		sw.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire reports whether a slot is free right now, recording an
// admission when it is. It never blocks.
func (sw *SlidingWindow) TryAcquire() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.nowFunc()
	sw.prune(now)
	if len(sw.log) >= sw.maxCalls {
		return false
	}
	sw.log = append(sw.log, now)
	return true
}

// Recent returns the number of admissions still inside the trailing window.
func (sw *SlidingWindow) Recent() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.prune(sw.nowFunc())
	return len(sw.log)
}

// MaxCalls returns the admission quota per window.
func (sw *SlidingWindow) MaxCalls() int { return sw.maxCalls }

// Period returns the window length.
func (sw *SlidingWindow) Period() time.Duration { return sw.period }

// prune evicts timestamps at or beyond the window boundary: an admission
// exactly period old no longer counts. Caller must hold sw.mu.
func (sw *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-sw.period)
	i := 0
	for i < len(sw.log) && !sw.log[i].After(cutoff) {
		i++
	}
	if i > 0 {
		sw.log = append(sw.log[:0], sw.log[i:]...)
	}
}

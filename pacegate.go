// Package pacegate provides admission control for gRPC services: a blocking
// sliding-window rate limiter, server middleware that queues or rejects
// requests against it, and a composable server wrapper that wires the pieces
// together without imposing a framework.
package pacegate

import (
	"context"

	"github.com/mkarlsen/pacegate/ratelimit"
)

// HandlerFunc is the minimal unit of work that middlewares wrap.
type HandlerFunc func(ctx context.Context) error

// Middleware transforms a HandlerFunc, allowing pre/post behavior composition.
type Middleware func(HandlerFunc) HandlerFunc

// Chain composes middlewares from left to right, i.e., Chain(A, B)(h) => A(B(h)).
func Chain(mw ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}

// Wrap applies the middleware chain to a handler and returns the wrapped handler.
func Wrap(h HandlerFunc, mw ...Middleware) HandlerFunc {
	if len(mw) == 0 {
		return h
	}
	return Chain(mw...)(h)
}

// Limited returns a Middleware that charges one admission against acq before
// each invocation, suspending the caller while the window is full. It is the
// plain-function counterpart to the gRPC admission interceptors, for pacing
// work that is not an RPC.
func Limited(acq ratelimit.Acquirer) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context) error {
			if err := acq.Acquire(ctx); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

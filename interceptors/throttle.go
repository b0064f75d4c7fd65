package interceptors

import (
	"context"

	"github.com/mkarlsen/pacegate/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errThrottled is allocated once to avoid per-request allocations on the hot path.
var errThrottled = status.Error(codes.ResourceExhausted, "rate limit exceeded")

// ThrottleUnary returns a unary server interceptor that rejects requests
// outright when the token-bucket gate is exhausted. Use this instead of
// [AdmissionUnary] when callers should fail fast rather than queue.
func ThrottleUnary(g *ratelimit.Gate) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !g.Allow() {
			return nil, errThrottled
		}
		return handler(ctx, req)
	}
}

// ThrottleStream returns a stream server interceptor that rejects streams
// outright when the token-bucket gate is exhausted.
func ThrottleStream(g *ratelimit.Gate) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if !g.Allow() {
			return errThrottled
		}
		return handler(srv, ss)
	}
}

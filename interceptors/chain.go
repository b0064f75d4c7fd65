// Package interceptors contains the gRPC server middleware shipped with
// pacegate: admission gating, throttling, panic recovery, request IDs, and
// the chaining helpers that compose them.
package interceptors

import (
	"context"

	"google.golang.org/grpc"
)

// ChainUnary composes multiple unary interceptors into a single one.
// Interceptors execute in the order they appear in the slice.
func ChainUnary(ics []grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	switch len(ics) {
	case 0:
		return nil
	case 1:
		return ics[0]
	}
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		return ics[0](ctx, req, info, nextUnary(ics[1:], info, handler))
	}
}

// nextUnary builds the handler that invokes the remaining interceptors in
// order, terminating at final.
func nextUnary(rest []grpc.UnaryServerInterceptor, info *grpc.UnaryServerInfo, final grpc.UnaryHandler) grpc.UnaryHandler {
	if len(rest) == 0 {
		return final
	}
	return func(ctx context.Context, req any) (any, error) {
		return rest[0](ctx, req, info, nextUnary(rest[1:], info, final))
	}
}

// ChainStream composes multiple stream interceptors into a single one.
// Interceptors execute in the order they appear in the slice.
func ChainStream(ics []grpc.StreamServerInterceptor) grpc.StreamServerInterceptor {
	switch len(ics) {
	case 0:
		return nil
	case 1:
		return ics[0]
	}
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		return ics[0](srv, ss, info, nextStream(ics[1:], info, handler))
	}
}

func nextStream(rest []grpc.StreamServerInterceptor, info *grpc.StreamServerInfo, final grpc.StreamHandler) grpc.StreamHandler {
	if len(rest) == 0 {
		return final
	}
	return func(srv any, ss grpc.ServerStream) error {
		return rest[0](srv, ss, info, nextStream(rest[1:], info, final))
	}
}

// wrappedStream overrides Context() so interceptors can hand an enriched
// context down to the handler.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }

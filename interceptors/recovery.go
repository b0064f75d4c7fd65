package interceptors

import (
	"context"
	"runtime/debug"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errInternal is returned in place of any panic escaping a handler.
var errInternal = status.Error(codes.Internal, "internal server error")

// logPanic records the panic value and stack for the failed method.
func logPanic(log zerolog.Logger, fullMethod string, recovered any) {
	log.Error().
		Str("method", fullMethod).
		Interface("panic", recovered).
		Str("stack", string(debug.Stack())).
		Msg("handler panicked")
}

// RecoveryUnary returns a unary server interceptor that recovers from panics,
// logs them, and returns codes.Internal instead of crashing the process.
func RecoveryUnary(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(log, info.FullMethod, r)
				resp = nil
				err = errInternal
			}
		}()
		return handler(ctx, req)
	}
}

// RecoveryStream returns a stream server interceptor that recovers from
// panics, logs them, and returns codes.Internal instead of crashing the
// process.
func RecoveryStream(log zerolog.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(log, info.FullMethod, r)
				err = errInternal
			}
		}()
		return handler(srv, ss)
	}
}

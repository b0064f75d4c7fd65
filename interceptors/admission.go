package interceptors

import (
	"context"
	"sync"
	"time"

	"github.com/mkarlsen/pacegate/contextx"
	"github.com/mkarlsen/pacegate/policy"
	"github.com/mkarlsen/pacegate/ratelimit"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// admissionState holds the global limiter, an optional policy resolver, and
// per-group limiters created lazily from resolved admission rules.
type admissionState struct {
	global   ratelimit.Acquirer
	resolver *policy.Resolver

	mu     sync.Mutex
	groups map[string]*ratelimit.SlidingWindow
}

// limiterFor returns the per-group limiter when the resolver maps fullMethod
// to a group carrying an admission rule, and the global limiter otherwise.
func (s *admissionState) limiterFor(fullMethod string) ratelimit.Acquirer {
	if s.resolver == nil {
		return s.global
	}
	name, pol, ok := s.resolver.Resolve(fullMethod)
	if !ok || pol == nil || pol.Admission == nil {
		return s.global
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lim, ok := s.groups[name]; ok {
		return lim
	}
	lim, err := ratelimit.New(pol.Admission.MaxCalls, pol.Admission.Window)
	if err != nil {
		// A malformed rule cannot gate anything; fall back to the global
		// limiter rather than failing the request.
		return s.global
	}
	s.groups[name] = lim
	return lim
}

// admit blocks until the applicable limiter admits the request, then returns
// the context enriched with the time spent queued. A context that expires
// while queued surfaces as the matching gRPC status error.
func (s *admissionState) admit(ctx context.Context, fullMethod string) (context.Context, error) {
	start := time.Now()
	if err := s.limiterFor(fullMethod).Acquire(ctx); err != nil {
		return ctx, status.FromContextError(err).Err()
	}
	wait := time.Since(start)

	// When the request is traced, expose the queue time on the active span.
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Float64("pacegate.admission_wait_seconds", wait.Seconds()),
	)
	return contextx.WithAdmissionWait(ctx, wait), nil
}

// AdmissionUnary returns a unary server interceptor that suspends each
// request until the sliding-window limiter admits it. Unlike the throttle
// interceptors nothing is rejected: callers queue until capacity frees up or
// their context expires. When a policy resolver is provided, methods that
// resolve to a group with an admission rule get a dedicated per-group window.
func AdmissionUnary(global ratelimit.Acquirer, r *policy.Resolver) grpc.UnaryServerInterceptor {
	st := &admissionState{global: global, resolver: r, groups: make(map[string]*ratelimit.SlidingWindow)}
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, err := st.admit(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// AdmissionStream returns a stream server interceptor that suspends each
// stream until the sliding-window limiter admits it. Admission is charged
// once per stream, when it opens.
func AdmissionStream(global ratelimit.Acquirer, r *policy.Resolver) grpc.StreamServerInterceptor {
	st := &admissionState{global: global, resolver: r, groups: make(map[string]*ratelimit.SlidingWindow)}
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, err := st.admit(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
	}
}

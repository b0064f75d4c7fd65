package pacegate

import (
	"github.com/mkarlsen/pacegate/cache"
	"github.com/mkarlsen/pacegate/interceptors"
	"github.com/mkarlsen/pacegate/internal/core"
	"github.com/mkarlsen/pacegate/policy"
	"github.com/mkarlsen/pacegate/ratelimit"
	"github.com/mkarlsen/pacegate/tracing"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
)

// Middleware priorities. Lower values run first (outermost), so recovery
// always wraps everything and admission gating happens after the request is
// identified and traced. User-supplied interceptors run innermost.
const (
	priorityRecovery  = 0
	priorityRequestID = 10
	priorityTracing   = 20
	priorityThrottle  = 30
	priorityAdmission = 40
	priorityUser      = 100
)

// config holds the internal configuration assembled via functional options.
type config struct {
	middleware core.Builder

	local  *cache.Local
	remote *cache.Remote
	cache  cache.Cache
}

// Option configures a Server.
type Option func(*config)

// WithRecovery installs panic-recovery interceptors so a panic inside a
// handler is logged and returned as codes.Internal instead of crashing the
// process.
func WithRecovery(log zerolog.Logger) Option {
	return func(c *config) {
		c.middleware.Add(priorityRecovery, interceptors.RecoveryUnary(log), interceptors.RecoveryStream(log))
	}
}

// WithRequestID installs interceptors that guarantee a request ID in every
// handler context.
func WithRequestID() Option {
	return func(c *config) {
		c.middleware.Add(priorityRequestID, interceptors.RequestIDUnary(), interceptors.RequestIDStream())
	}
}

// WithTracing installs OpenTelemetry tracing interceptors.
func WithTracing(cfg *tracing.Config) Option {
	return func(c *config) {
		c.middleware.Add(priorityTracing, tracing.UnaryServerInterceptor(cfg), tracing.StreamServerInterceptor(cfg))
	}
}

// WithAdmission installs the blocking admission gate: requests queue against
// the sliding-window limiter until capacity frees up or their context
// expires. resolver may be nil; when provided, methods resolving to a group
// with an admission rule get a dedicated per-group window.
func WithAdmission(global ratelimit.Acquirer, resolver *policy.Resolver) Option {
	return func(c *config) {
		c.middleware.Add(priorityAdmission,
			interceptors.AdmissionUnary(global, resolver),
			interceptors.AdmissionStream(global, resolver))
	}
}

// WithThrottle installs the non-blocking token-bucket gate: requests over
// budget fail fast with codes.ResourceExhausted instead of queueing.
func WithThrottle(g *ratelimit.Gate) Option {
	return func(c *config) {
		c.middleware.Add(priorityThrottle, interceptors.ThrottleUnary(g), interceptors.ThrottleStream(g))
	}
}

// WithLocalCache attaches an in-process result cache to the server.
func WithLocalCache(l *cache.Local) Option {
	return func(c *config) {
		c.local = l
		c.cache = l
	}
}

// WithRemoteCache attaches a Redis-backed result cache to the server. When a
// local cache is also configured the two are combined into a layered cache.
func WithRemoteCache(r *cache.Remote) Option {
	return func(c *config) {
		c.remote = r
		c.cache = r
	}
}

// WithUnaryInterceptor appends a user-supplied unary interceptor, which runs
// after the built-in middleware.
func WithUnaryInterceptor(i grpc.UnaryServerInterceptor) Option {
	return func(c *config) {
		c.middleware.Add(priorityUser, i, nil)
	}
}

// WithStreamInterceptor appends a user-supplied stream interceptor, which
// runs after the built-in middleware.
func WithStreamInterceptor(i grpc.StreamServerInterceptor) Option {
	return func(c *config) {
		c.middleware.Add(priorityUser, nil, i)
	}
}

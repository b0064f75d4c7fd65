package pacegate

import (
	"net/http"

	"github.com/mkarlsen/pacegate/cache"
	"github.com/mkarlsen/pacegate/calculator"
	"github.com/mkarlsen/pacegate/interceptors"
	"github.com/mkarlsen/pacegate/internal/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
)

// Server is a composable wrapper around a [grpc.Server] that layers
// middleware (recovery, request IDs, tracing, admission gating, throttling)
// via functional [Option] values passed to [NewServer].
//
// After construction the underlying gRPC server is available through
// [Server.GRPC] so that service implementations can be registered normally:
//
//	srv := pacegate.NewServer(
//		pacegate.WithRecovery(log),
//		pacegate.WithAdmission(limiter, nil),
//	)
//	pb.RegisterMyServiceServer(srv.GRPC(), &myImpl{})
type Server struct {
	grpcServer *grpc.Server
	cache      cache.Cache
}

// NewServer creates a Server by applying the supplied options and wiring the
// resulting interceptor chains into [grpc.NewServer]. Middleware execution
// order is determined by fixed priorities, not by the order options are
// passed.
func NewServer(opts ...Option) *Server {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}

	// When both cache layers are configured, combine them.
	if cfg.local != nil && cfg.remote != nil {
		cfg.cache = cache.NewLayered(cfg.local, cfg.remote)
	}

	unary, stream := cfg.middleware.Build()
	serverOpts := core.ServerOptions(unary, stream, interceptors.ChainUnary, interceptors.ChainStream)

	return &Server{
		grpcServer: grpc.NewServer(serverOpts...),
		cache:      cfg.cache,
	}
}

// GRPC returns the underlying *grpc.Server so callers can register services.
func (s *Server) GRPC() *grpc.Server {
	return s.grpcServer
}

// Cache returns the result cache configured via the cache options, or nil.
func (s *Server) Cache() cache.Cache {
	return s.cache
}

// RegisterCalculator registers the built-in calc.Calculator streaming
// service using the supplied [calculator.Handler].
func (s *Server) RegisterCalculator(h calculator.Handler) {
	calculator.Register(s.grpcServer, h)
}

// MetricsHandler returns an http.Handler that serves Prometheus metrics.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

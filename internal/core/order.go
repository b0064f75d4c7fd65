// Package core assembles the server's interceptor chains: middleware entries
// are registered with a fixed priority and emitted in sorted order so that
// option order never changes execution order.
package core

import (
	"cmp"
	"slices"

	"google.golang.org/grpc"
)

// entry is one interceptor pair with its execution priority. Lower values
// run first (outermost).
type entry struct {
	unary    grpc.UnaryServerInterceptor
	stream   grpc.StreamServerInterceptor
	priority int
}

// Builder collects middleware entries and produces priority-sorted
// interceptor slices ready for chaining.
type Builder struct {
	entries []entry
}

// Add registers an interceptor pair at the given priority. Either
// interceptor may be nil when only one direction is needed.
func (b *Builder) Add(priority int, unary grpc.UnaryServerInterceptor, stream grpc.StreamServerInterceptor) {
	b.entries = append(b.entries, entry{unary: unary, stream: stream, priority: priority})
}

// Build sorts the collected entries by priority (stable, so equal priorities
// keep registration order) and returns the separated interceptor slices.
func (b *Builder) Build() ([]grpc.UnaryServerInterceptor, []grpc.StreamServerInterceptor) {
	slices.SortStableFunc(b.entries, func(x, y entry) int {
		return cmp.Compare(x.priority, y.priority)
	})

	var unary []grpc.UnaryServerInterceptor
	var stream []grpc.StreamServerInterceptor
	for _, e := range b.entries {
		if e.unary != nil {
			unary = append(unary, e.unary)
		}
		if e.stream != nil {
			stream = append(stream, e.stream)
		}
	}
	return unary, stream
}

// ServerOptions translates interceptor slices into grpc.ServerOption values,
// chaining each direction with the supplied combinators.
func ServerOptions(
	unary []grpc.UnaryServerInterceptor,
	stream []grpc.StreamServerInterceptor,
	chainUnary func([]grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor,
	chainStream func([]grpc.StreamServerInterceptor) grpc.StreamServerInterceptor,
) []grpc.ServerOption {
	var opts []grpc.ServerOption
	if u := chainUnary(unary); u != nil {
		opts = append(opts, grpc.UnaryInterceptor(u))
	}
	if s := chainStream(stream); s != nil {
		opts = append(opts, grpc.StreamInterceptor(s))
	}
	return opts
}

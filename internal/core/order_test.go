package core

import (
	"context"
	"testing"

	"google.golang.org/grpc"
)

func tag(name string, log *[]string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		*log = append(*log, name)
		return handler(ctx, req)
	}
}

func TestBuild_SortsByPriority(t *testing.T) {
	var log []string
	var b Builder
	b.Add(40, tag("admission", &log), nil)
	b.Add(0, tag("recovery", &log), nil)
	b.Add(20, tag("tracing", &log), nil)

	unary, stream := b.Build()
	if len(unary) != 3 {
		t.Fatalf("got %d unary interceptors, want 3", len(unary))
	}
	if len(stream) != 0 {
		t.Fatalf("got %d stream interceptors, want 0", len(stream))
	}

	for _, ic := range unary {
		_, _ = ic(context.Background(), nil, &grpc.UnaryServerInfo{}, func(_ context.Context, _ any) (any, error) {
			return nil, nil
		})
	}
	want := []string{"recovery", "tracing", "admission"}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("execution order = %v, want %v", log, want)
		}
	}
}

func TestBuild_StableForEqualPriorities(t *testing.T) {
	var log []string
	var b Builder
	b.Add(100, tag("first", &log), nil)
	b.Add(100, tag("second", &log), nil)

	unary, _ := b.Build()
	for _, ic := range unary {
		_, _ = ic(context.Background(), nil, &grpc.UnaryServerInfo{}, func(_ context.Context, _ any) (any, error) {
			return nil, nil
		})
	}
	if log[0] != "first" || log[1] != "second" {
		t.Fatalf("equal priorities reordered: %v", log)
	}
}

func TestServerOptions_EmptyChainsYieldNoOptions(t *testing.T) {
	chainU := func(ics []grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
		if len(ics) == 0 {
			return nil
		}
		return ics[0]
	}
	chainS := func(ics []grpc.StreamServerInterceptor) grpc.StreamServerInterceptor {
		if len(ics) == 0 {
			return nil
		}
		return ics[0]
	}
	if opts := ServerOptions(nil, nil, chainU, chainS); len(opts) != 0 {
		t.Fatalf("got %d options, want 0", len(opts))
	}
}

package interceptors

import (
	"context"
	"testing"
	"time"

	"github.com/mkarlsen/pacegate/contextx"
	"github.com/mkarlsen/pacegate/policy"
	"github.com/mkarlsen/pacegate/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// okHandler is a trivial handler that always succeeds.
func okHandler(_ context.Context, _ any) (any, error) { return "ok", nil }

func codeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	st, _ := status.FromError(err)
	return st.Code()
}

func newWindow(t *testing.T, maxCalls int, period time.Duration) *ratelimit.SlidingWindow {
	t.Helper()
	sw, err := ratelimit.New(maxCalls, period)
	if err != nil {
		t.Fatalf("ratelimit.New: %v", err)
	}
	return sw
}

func TestAdmissionUnary_AdmitsUnderQuota(t *testing.T) {
	ic := AdmissionUnary(newWindow(t, 5, time.Second), nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/calc.Calculator/GeneratePrimes"}

	var waitRecorded bool
	handler := func(ctx context.Context, _ any) (any, error) {
		_, waitRecorded = contextx.AdmissionWaitFromContext(ctx)
		return "ok", nil
	}

	resp, err := ic(context.Background(), nil, info, handler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "ok" {
		t.Fatalf("unexpected response: %v", resp)
	}
	if !waitRecorded {
		t.Fatal("expected admission wait in handler context")
	}
}

func TestAdmissionUnary_QueuesInsteadOfRejecting(t *testing.T) {
	const period = 200 * time.Millisecond
	ic := AdmissionUnary(newWindow(t, 1, period), nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/svc/Do"}

	if _, err := ic(context.Background(), nil, info, okHandler); err != nil {
		t.Fatalf("first request: %v", err)
	}

	start := time.Now()
	if _, err := ic(context.Background(), nil, info, okHandler); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if waited := time.Since(start); waited < period-20*time.Millisecond {
		t.Fatalf("second request waited %v, want about %v", waited, period)
	}
}

func TestAdmissionUnary_DeadlineWhileQueued(t *testing.T) {
	ic := AdmissionUnary(newWindow(t, 1, time.Minute), nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/svc/Do"}

	if _, err := ic(context.Background(), nil, info, okHandler); err != nil {
		t.Fatalf("first request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := ic(ctx, nil, info, okHandler)
	if codeOf(err) != codes.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", codeOf(err))
	}
}

func TestAdmissionUnary_PerGroupOverridesGlobal(t *testing.T) {
	// Global: generous. Group: one admission per minute for the factorial
	// method, so its second request queues past the test deadline.
	resolver := policy.NewResolver(
		policy.Group("factorial").
			Exact("/calc.Calculator/CalculateFactorial").
			Policy(policy.Policy{
				Admission: &policy.AdmissionRule{MaxCalls: 1, Window: time.Minute},
			}),
	)
	ic := AdmissionUnary(newWindow(t, 100, time.Second), resolver)

	heavy := &grpc.UnaryServerInfo{FullMethod: "/calc.Calculator/CalculateFactorial"}
	if _, err := ic(context.Background(), nil, heavy, okHandler); err != nil {
		t.Fatalf("first factorial request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := ic(ctx, nil, heavy, okHandler)
	if codeOf(err) != codes.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded from group limiter, got %v", codeOf(err))
	}

	// Unmatched methods still use the generous global limiter.
	light := &grpc.UnaryServerInfo{FullMethod: "/calc.Calculator/GeneratePrimes"}
	for i := 0; i < 5; i++ {
		if _, err := ic(context.Background(), nil, light, okHandler); err != nil {
			t.Fatalf("light request %d: %v", i, err)
		}
	}
}

// fakeStream is the minimal grpc.ServerStream used to exercise the stream
// interceptors.
type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func TestAdmissionStream_AdmitsAndEnrichesContext(t *testing.T) {
	ic := AdmissionStream(newWindow(t, 5, time.Second), nil)
	info := &grpc.StreamServerInfo{FullMethod: "/calc.Calculator/GeneratePrimes"}

	var waitRecorded bool
	handler := func(_ any, ss grpc.ServerStream) error {
		_, waitRecorded = contextx.AdmissionWaitFromContext(ss.Context())
		return nil
	}

	if err := ic(nil, &fakeStream{ctx: context.Background()}, info, handler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !waitRecorded {
		t.Fatal("expected admission wait in stream context")
	}
}

func TestAdmissionStream_DeadlineWhileQueued(t *testing.T) {
	ic := AdmissionStream(newWindow(t, 1, time.Minute), nil)
	info := &grpc.StreamServerInfo{FullMethod: "/svc/Do"}

	handler := func(_ any, _ grpc.ServerStream) error { return nil }

	if err := ic(nil, &fakeStream{ctx: context.Background()}, info, handler); err != nil {
		t.Fatalf("first stream: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := ic(nil, &fakeStream{ctx: ctx}, info, handler)
	if codeOf(err) != codes.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", codeOf(err))
	}
}

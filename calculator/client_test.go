package calculator_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/mkarlsen/pacegate"
	"github.com/mkarlsen/pacegate/calculator"
	"github.com/mkarlsen/pacegate/ratelimit"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// startServer brings up a fully wired in-process server and returns a client
// connection to it.
func startServer(t *testing.T, svc calculator.Handler) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)

	sw, err := ratelimit.New(100, time.Second)
	if err != nil {
		t.Fatalf("ratelimit.New: %v", err)
	}
	opts := append(pacegate.DefaultOptions(zerolog.Nop()), pacegate.WithAdmission(sw, nil))
	srv := pacegate.NewServer(opts...)
	srv.RegisterCalculator(svc)

	go func() { _ = srv.GRPC().Serve(lis) }()
	t.Cleanup(srv.GRPC().Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestClientPrimesRoundTrip(t *testing.T) {
	conn := startServer(t, calculator.NewService(nil, nil, zerolog.Nop()))
	client := calculator.NewClient(conn)

	got, err := client.Primes(context.Background(), 30)
	if err != nil {
		t.Fatalf("Primes: %v", err)
	}

	want := []int64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}
	if len(got) != len(want) {
		t.Fatalf("received %d primes, want %d", len(got), len(want))
	}
	for i, resp := range got {
		if resp.Prime != want[i] || resp.Position != int64(i+1) {
			t.Fatalf("prime[%d] = %+v, want {%d, %d}", i, resp, want[i], i+1)
		}
	}
}

func TestClientFibonacciRoundTrip(t *testing.T) {
	conn := startServer(t, calculator.NewService(nil, nil, zerolog.Nop()))
	client := calculator.NewClient(conn)

	got, err := client.Fibonacci(context.Background(), 8)
	if err != nil {
		t.Fatalf("Fibonacci: %v", err)
	}

	want := []int64{0, 1, 1, 2, 3, 5, 8, 13}
	if len(got) != len(want) {
		t.Fatalf("received %d terms, want %d", len(got), len(want))
	}
	for i, resp := range got {
		if resp.Number != want[i] {
			t.Fatalf("term[%d] = %d, want %d", i, resp.Number, want[i])
		}
	}
}

func TestClientFactorialRoundTrip(t *testing.T) {
	conn := startServer(t, calculator.NewService(nil, nil, zerolog.Nop()))
	client := calculator.NewClient(conn)

	got, err := client.Factorial(context.Background(), 6)
	if err != nil {
		t.Fatalf("Factorial: %v", err)
	}

	if len(got) != 6 {
		t.Fatalf("received %d steps, want 6", len(got))
	}
	last := got[len(got)-1]
	if last.Result != "720" || !last.Final {
		t.Fatalf("last step = %+v, want {Result:720 Final:true}", last)
	}
}

func TestClientSurfacesInvalidArgument(t *testing.T) {
	conn := startServer(t, calculator.NewService(nil, nil, zerolog.Nop()))
	client := calculator.NewClient(conn)

	_, err := client.Primes(context.Background(), 1)
	if codeOf(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestClientStreamIsPacedByServerLimiter(t *testing.T) {
	const period = 150 * time.Millisecond
	sw, err := ratelimit.New(2, period)
	if err != nil {
		t.Fatalf("ratelimit.New: %v", err)
	}
	conn := startServer(t, calculator.NewService(sw, nil, zerolog.Nop()))
	client := calculator.NewClient(conn)

	start := time.Now()
	got, err := client.Primes(context.Background(), 13)
	if err != nil {
		t.Fatalf("Primes: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("received %d primes, want 6", len(got))
	}
	if elapsed := time.Since(start); elapsed < 2*period-20*time.Millisecond {
		t.Fatalf("paced stream finished in %v, want >= %v", elapsed, 2*period)
	}
}

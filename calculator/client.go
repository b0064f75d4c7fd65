package calculator

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mkarlsen/pacegate/retry"
	"google.golang.org/grpc"
)

// Client is a thin client for the calc.Calculator service. Each call opens a
// server stream, collects the full sequence, and retries transient failures
// according to the configured retry policy.
type Client struct {
	cc    grpc.ClientConnInterface
	retry retry.Config
}

// NewClient creates a Client with the default transient-failure retry policy.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc, retry: retry.Transient()}
}

// WithRetry returns a copy of the client that uses cfg for retries.
func (c *Client) WithRetry(cfg retry.Config) *Client {
	cp := *c
	cp.retry = cfg
	return &cp
}

// Primes returns every prime up to and including limit.
func (c *Client) Primes(ctx context.Context, limit int64) ([]PrimeResponse, error) {
	return collect[PrimeResponse](ctx, c, "GeneratePrimes", &PrimesRequest{Limit: limit})
}

// Fibonacci returns the first terms Fibonacci numbers.
func (c *Client) Fibonacci(ctx context.Context, terms int64) ([]FibonacciResponse, error) {
	return collect[FibonacciResponse](ctx, c, "GenerateFibonacci", &FibonacciRequest{Terms: terms})
}

// Factorial returns the intermediate products of number!.
func (c *Client) Factorial(ctx context.Context, number int64) ([]FactorialResponse, error) {
	return collect[FactorialResponse](ctx, c, "CalculateFactorial", &FactorialRequest{Number: number})
}

// collect opens the named server stream, sends req, and drains the responses.
func collect[T any](ctx context.Context, c *Client, name string, req any) ([]T, error) {
	desc := streamDesc(name)
	method := "/" + ServiceDesc.ServiceName + "/" + name

	return retry.Do(ctx, c.retry, func(ctx context.Context) ([]T, error) {
		cs, err := c.cc.NewStream(ctx, desc, method)
		if err != nil {
			return nil, err
		}
		if err := cs.SendMsg(req); err != nil {
			return nil, err
		}
		if err := cs.CloseSend(); err != nil {
			return nil, err
		}

		var out []T
		for {
			msg := new(T)
			if err := cs.RecvMsg(msg); err != nil {
				if errors.Is(err, io.EOF) {
					return out, nil
				}
				return nil, err
			}
			out = append(out, *msg)
		}
	})
}

// streamDesc looks up the named stream in ServiceDesc.
func streamDesc(name string) *grpc.StreamDesc {
	for i := range ServiceDesc.Streams {
		if ServiceDesc.Streams[i].StreamName == name {
			return &ServiceDesc.Streams[i]
		}
	}
	panic(fmt.Sprintf("calculator: unknown stream %q", name))
}

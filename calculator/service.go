package calculator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/mkarlsen/pacegate/cache"
	"github.com/mkarlsen/pacegate/ratelimit"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// resultTTL bounds how long memoized sequences stay cached.
const resultTTL = time.Hour

// maxFibonacciTerms is the largest request whose values still fit in the
// int64 carried on the wire (position 93 holds 7540113804746346429).
const maxFibonacciTerms = 93

// Service is the built-in Handler implementation. Every streamed element is
// paced through the admission limiter, so a single stream cannot exceed the
// configured call rate no matter how fast the client reads. Finished
// sequences are memoized through the result cache.
type Service struct {
	limiter ratelimit.Acquirer
	results cache.Cache
	log     zerolog.Logger
}

// NewService creates a Service. limiter may be nil to disable pacing and
// results may be nil to disable memoization; log can be zerolog.Nop().
func NewService(limiter ratelimit.Acquirer, results cache.Cache, log zerolog.Logger) *Service {
	return &Service{limiter: limiter, results: results, log: log}
}

// GeneratePrimes streams every prime up to and including req.Limit.
func (s *Service) GeneratePrimes(req *PrimesRequest, stream PrimeSender) error {
	if req.Limit < 2 {
		return status.Errorf(codes.InvalidArgument, "limit must be at least 2, got %d", req.Limit)
	}

	ctx := stream.Context()
	var primes []int64
	err := s.memoized(ctx, fmt.Sprintf("primes:%d", req.Limit), &primes, func() any {
		return primesUpTo(req.Limit)
	})
	if err != nil {
		return err
	}

	s.log.Info().Int64("limit", req.Limit).Int("count", len(primes)).Msg("streaming primes")
	for i, p := range primes {
		if err := s.pace(ctx); err != nil {
			return err
		}
		if err := stream.Send(&PrimeResponse{Prime: p, Position: int64(i + 1)}); err != nil {
			return err
		}
	}
	return nil
}

// GenerateFibonacci streams the first req.Terms Fibonacci numbers.
func (s *Service) GenerateFibonacci(req *FibonacciRequest, stream FibonacciSender) error {
	if req.Terms < 1 {
		return status.Errorf(codes.InvalidArgument, "number of terms must be positive, got %d", req.Terms)
	}
	if req.Terms > maxFibonacciTerms {
		return status.Errorf(codes.InvalidArgument, "terms must be at most %d, got %d", maxFibonacciTerms, req.Terms)
	}

	ctx := stream.Context()
	var seq []int64
	err := s.memoized(ctx, fmt.Sprintf("fibonacci:%d", req.Terms), &seq, func() any {
		return fibonacci(req.Terms)
	})
	if err != nil {
		return err
	}

	s.log.Info().Int64("terms", req.Terms).Msg("streaming fibonacci sequence")
	for i, n := range seq {
		if err := s.pace(ctx); err != nil {
			return err
		}
		if err := stream.Send(&FibonacciResponse{Number: n, Position: int64(i + 1)}); err != nil {
			return err
		}
	}
	return nil
}

// CalculateFactorial streams the intermediate products of req.Number!. The
// last element carries Final=true.
func (s *Service) CalculateFactorial(req *FactorialRequest, stream FactorialSender) error {
	if req.Number < 0 {
		return status.Errorf(codes.InvalidArgument, "cannot calculate factorial of negative number %d", req.Number)
	}

	ctx := stream.Context()
	var steps []string
	err := s.memoized(ctx, fmt.Sprintf("factorial:%d", req.Number), &steps, func() any {
		return factorialSteps(req.Number)
	})
	if err != nil {
		return err
	}

	s.log.Info().Int64("number", req.Number).Msg("streaming factorial steps")
	for i, result := range steps {
		if err := s.pace(ctx); err != nil {
			return err
		}
		resp := &FactorialResponse{
			Result: result,
			Step:   int64(i + 1),
			Final:  i == len(steps)-1,
		}
		if req.Number <= 1 {
			// 0! and 1! produce a single step labeled with the input itself.
			resp.Step = req.Number
		}
		if err := stream.Send(resp); err != nil {
			return err
		}
	}
	return nil
}

// pace charges one admission against the limiter before an element is sent.
func (s *Service) pace(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return status.FromContextError(err).Err()
	}
	return nil
}

// memoized loads a JSON-encoded sequence from the result cache, computing
// and storing it on a miss. With no cache configured it computes directly.
func (s *Service) memoized(ctx context.Context, key string, out any, compute func() any) error {
	if s.results == nil {
		raw, err := json.Marshal(compute())
		if err != nil {
			return status.Errorf(codes.Internal, "encode result: %v", err)
		}
		return json.Unmarshal(raw, out)
	}

	raw, err := s.results.Fetch(ctx, key, resultTTL, func(context.Context) ([]byte, error) {
		return json.Marshal(compute())
	})
	if err != nil {
		return status.Errorf(codes.Internal, "load result: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return status.Errorf(codes.Internal, "decode cached result: %v", err)
	}
	return nil
}

// primesUpTo returns every prime in [2, limit].
func primesUpTo(limit int64) []int64 {
	var primes []int64
	for n := int64(2); n <= limit; n++ {
		if isPrime(n) {
			primes = append(primes, n)
		}
	}
	return primes
}

// isPrime uses trial division over the 6k+-1 candidates.
func isPrime(n int64) bool {
	if n <= 1 {
		return false
	}
	if n <= 3 {
		return true
	}
	if n%2 == 0 || n%3 == 0 {
		return false
	}
	for i := int64(5); i*i <= n; i += 6 {
		if n%i == 0 || n%(i+2) == 0 {
			return false
		}
	}
	return true
}

// fibonacci returns the first terms Fibonacci numbers starting from 0.
func fibonacci(terms int64) []int64 {
	seq := make([]int64, 0, terms)
	a, b := int64(0), int64(1)
	for i := int64(0); i < terms; i++ {
		seq = append(seq, a)
		a, b = b, a+b
	}
	return seq
}

// factorialSteps returns the intermediate products 1!, 2!, ..., n! as
// decimal strings. For n <= 1 it returns the single step "1".
func factorialSteps(n int64) []string {
	if n <= 1 {
		return []string{"1"}
	}
	steps := make([]string, 0, n)
	result := big.NewInt(1)
	for i := int64(1); i <= n; i++ {
		result.Mul(result, big.NewInt(i))
		steps = append(steps, result.String())
	}
	return steps
}

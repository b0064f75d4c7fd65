// Package calculator provides the calc.Calculator streaming service: prime,
// Fibonacci, and factorial sequences streamed element by element, with each
// element paced through an admission limiter.
//
// The service uses [grpc.ServiceDesc] registration so that no protobuf code
// generation is required. Because the messages are plain Go structs, the
// package registers a thin codec wrapper that JSON-encodes calculator types
// while delegating all other messages to the standard proto codec. Import
// this package (or call [Register]) to activate the codec automatically.
package calculator

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	grpcEncoding "google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/proto" // ensure default proto codec is registered first
	"google.golang.org/protobuf/proto"
)

// PrimesRequest asks for all primes up to and including Limit.
type PrimesRequest struct {
	Limit int64 `json:"limit"`
}

// PrimeResponse is one streamed prime and its 1-based position.
type PrimeResponse struct {
	Prime    int64 `json:"prime"`
	Position int64 `json:"position"`
}

// FibonacciRequest asks for the first Terms Fibonacci numbers.
type FibonacciRequest struct {
	Terms int64 `json:"terms"`
}

// FibonacciResponse is one streamed Fibonacci number and its 1-based position.
type FibonacciResponse struct {
	Number   int64 `json:"number"`
	Position int64 `json:"position"`
}

// FactorialRequest asks for Number! computed step by step.
type FactorialRequest struct {
	Number int64 `json:"number"`
}

// FactorialResponse is one intermediate factorial value. Result is a decimal
// string so that large factorials survive the trip. Final marks the last step.
type FactorialResponse struct {
	Result string `json:"result"`
	Step   int64  `json:"step"`
	Final  bool   `json:"final"`
}

// calcMsg is a marker interface satisfied by every calculator message.
type calcMsg interface {
	isCalcMsg()
}

func (*PrimesRequest) isCalcMsg()     {}
func (*PrimeResponse) isCalcMsg()     {}
func (*FibonacciRequest) isCalcMsg()  {}
func (*FibonacciResponse) isCalcMsg() {}
func (*FactorialRequest) isCalcMsg()  {}
func (*FactorialResponse) isCalcMsg() {}

// PrimeSender is the server-side send half of the GeneratePrimes stream.
type PrimeSender interface {
	Send(*PrimeResponse) error
	Context() context.Context
}

// FibonacciSender is the server-side send half of the GenerateFibonacci stream.
type FibonacciSender interface {
	Send(*FibonacciResponse) error
	Context() context.Context
}

// FactorialSender is the server-side send half of the CalculateFactorial stream.
type FactorialSender interface {
	Send(*FactorialResponse) error
	Context() context.Context
}

// Handler is the interface a calc.Calculator implementation must satisfy.
type Handler interface {
	GeneratePrimes(req *PrimesRequest, stream PrimeSender) error
	GenerateFibonacci(req *FibonacciRequest, stream FibonacciSender) error
	CalculateFactorial(req *FactorialRequest, stream FactorialSender) error
}

type primeSender struct{ grpc.ServerStream }

func (s primeSender) Send(r *PrimeResponse) error { return s.SendMsg(r) }

type fibonacciSender struct{ grpc.ServerStream }

func (s fibonacciSender) Send(r *FibonacciResponse) error { return s.SendMsg(r) }

type factorialSender struct{ grpc.ServerStream }

func (s factorialSender) Send(r *FactorialResponse) error { return s.SendMsg(r) }

func generatePrimesHandler(srv any, stream grpc.ServerStream) error {
	req := new(PrimesRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(Handler).GeneratePrimes(req, primeSender{stream})
}

func generateFibonacciHandler(srv any, stream grpc.ServerStream) error {
	req := new(FibonacciRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(Handler).GenerateFibonacci(req, fibonacciSender{stream})
}

func calculateFactorialHandler(srv any, stream grpc.ServerStream) error {
	req := new(FactorialRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(Handler).CalculateFactorial(req, factorialSender{stream})
}

// ServiceDesc is the grpc.ServiceDesc for the calc.Calculator service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "calc.Calculator",
	HandlerType: (*Handler)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "GeneratePrimes",
			Handler:       generatePrimesHandler,
			ServerStreams: true,
		},
		{
			StreamName:    "GenerateFibonacci",
			Handler:       generateFibonacciHandler,
			ServerStreams: true,
		},
		{
			StreamName:    "CalculateFactorial",
			Handler:       calculateFactorialHandler,
			ServerStreams: true,
		},
	},
	Metadata: "calc/calculator.proto",
}

// Register registers a calculator implementation on the given gRPC server.
func Register(s *grpc.Server, h Handler) {
	s.RegisterService(&ServiceDesc, h)
}

// ---------- codec wrapper ----------

func init() {
	// Replace the default proto codec with a wrapper that JSON-encodes
	// calculator types and delegates everything else to proto.
	grpcEncoding.RegisterCodec(calcCodec{})
}

// calcCodec handles calculator messages via JSON and delegates all other
// types to proto.Marshal/Unmarshal.
type calcCodec struct{}

func (calcCodec) Name() string { return "proto" }

func (calcCodec) Marshal(v any) ([]byte, error) {
	if _, ok := v.(calcMsg); ok {
		return json.Marshal(v)
	}
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("calc codec: unsupported message type %T", v)
}

func (calcCodec) Unmarshal(data []byte, v any) error {
	if _, ok := v.(calcMsg); ok {
		return json.Unmarshal(data, v)
	}
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("calc codec: unsupported message type %T", v)
}

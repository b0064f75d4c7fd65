package pacegate

import "github.com/rs/zerolog"

// DefaultOptions returns the recommended baseline for production use: panic
// recovery with the given logger and request IDs on every RPC. Gate options
// (admission or throttle) are deliberately left to the caller since they
// need a configured limiter.
func DefaultOptions(log zerolog.Logger) []Option {
	return []Option{
		WithRecovery(log),
		WithRequestID(),
	}
}

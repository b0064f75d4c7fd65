// Package contextx defines the context keys and accessors shared by the
// interceptors: the per-request ID and the time a request spent queued for
// admission.
package contextx

// contextKey is an unexported type used as context key to avoid collisions
// with keys defined in other packages.
type contextKey int

const (
	requestIDKey contextKey = iota
	admissionWaitKey
)

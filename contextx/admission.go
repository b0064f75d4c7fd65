package contextx

import (
	"context"
	"time"
)

// WithAdmissionWait returns a derived context recording how long the request
// was suspended by the admission gate before its handler ran.
func WithAdmissionWait(ctx context.Context, wait time.Duration) context.Context {
	return context.WithValue(ctx, admissionWaitKey, wait)
}

// AdmissionWaitFromContext extracts the recorded admission wait. ok is false
// when the request never passed through an admission interceptor.
func AdmissionWaitFromContext(ctx context.Context) (time.Duration, bool) {
	wait, ok := ctx.Value(admissionWaitKey).(time.Duration)
	return wait, ok
}

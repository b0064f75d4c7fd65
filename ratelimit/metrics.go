package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrumented wraps a SlidingWindow with Prometheus metrics: counters for
// admissions and cancelled waits, a histogram of queue time, and a gauge
// tracking window occupancy. It satisfies [Acquirer] and can be dropped in
// wherever the bare limiter is used.
type Instrumented struct {
	sw *SlidingWindow

	admissions prometheus.Counter
	cancelled  prometheus.Counter
	waitTime   prometheus.Histogram
}

// NewInstrumented registers limiter metrics on reg and returns the wrapped
// limiter. The name label distinguishes multiple limiters registered on the
// same registry.
func NewInstrumented(sw *SlidingWindow, name string, reg prometheus.Registerer) *Instrumented {
	labels := prometheus.Labels{"limiter": name}

	m := &Instrumented{
		sw: sw,
		admissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "pacegate_admissions_total",
			Help:        "Total callers admitted by the sliding-window limiter",
			ConstLabels: labels,
		}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "pacegate_acquire_cancelled_total",
			Help:        "Total waits abandoned before admission",
			ConstLabels: labels,
		}),
		waitTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "pacegate_acquire_wait_seconds",
			Help:        "Time callers spent queued for admission",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}),
	}

	occupancy := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "pacegate_window_occupancy",
		Help:        "Admissions currently inside the trailing window",
		ConstLabels: labels,
	}, func() float64 {
		return float64(sw.Recent())
	})

	reg.MustRegister(m.admissions, m.cancelled, m.waitTime, occupancy)
	return m
}

// Acquire delegates to the wrapped limiter and records the outcome.
func (m *Instrumented) Acquire(ctx context.Context) error {
	start := time.Now()
	err := m.sw.Acquire(ctx)
	m.waitTime.Observe(time.Since(start).Seconds())

	if err != nil {
		m.cancelled.Inc()
		return err
	}
	m.admissions.Inc()
	return nil
}

// TryAcquire delegates to the wrapped limiter, counting successful
// admissions.
func (m *Instrumented) TryAcquire() bool {
	ok := m.sw.TryAcquire()
	if ok {
		m.admissions.Inc()
	}
	return ok
}

// Package metrics exposes Prometheus collectors for payments, sweeps and reconciliation passes.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Payment results.
const (
	Completed = "completed"
	Rejected  = "rejected"
	Failed    = "failed"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	payments   *prometheus.CounterVec
	amount     prometheus.Histogram
	sweeps     *prometheus.CounterVec
	failures   prometheus.Counter
	duration   prometheus.Histogram
	mismatches *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// New registers the collectors against registerer. When registerer is nil the default Prometheus registerer is
// used, only once.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = build(prometheus.DefaultRegisterer)
		})

		return defaultMetrics
	}

	return build(registerer)
}

// Payment counts a payment with its result and, when completed, observes its amount.
func (m *Metrics) Payment(result string, amount decimal.Decimal) {
	if m == nil {
		return
	}

	m.payments.WithLabelValues(result).Inc()

	if result == Completed {
		m.amount.Observe(amount.InexactFloat64())
	}
}

// Mismatch counts a reconciliation finding of kind.
func (m *Metrics) Mismatch(kind string) {
	if m == nil {
		return
	}

	m.mismatches.WithLabelValues(kind).Inc()
}

// Tracker instruments a single sweep.
type Tracker struct {
	metrics *Metrics
	start   time.Time
}

// Track starts tracking a sweep.
func (m *Metrics) Track() *Tracker {
	return &Tracker{metrics: m, start: time.Now()}
}

// End records the sweep duration, its status and the number of intents that failed, returning err untouched.
func (t *Tracker) End(failed int, err error) error {
	if t == nil || t.metrics == nil {
		return err
	}

	status := "success"
	if err != nil {
		status = "failure"
	}

	t.metrics.sweeps.WithLabelValues(status).Inc()
	t.metrics.failures.Add(float64(failed))
	t.metrics.duration.Observe(time.Since(t.start).Seconds())

	return err
}

func build(registerer prometheus.Registerer) *Metrics {
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rpay_payments_total",
		Help: "Total payments partitioned by result.",
	}, []string{"result"})
	amount := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rpay_payment_amount",
		Help:    "Amount of completed payments.",
		Buckets: prometheus.ExponentialBuckets(0.001, 10, 8), //nolint:gomnd // 0.001 to 10000
	})
	sweeps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rpay_sweep_runs_total",
		Help: "Total recurring payment sweeps partitioned by status.",
	}, []string{"status"})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rpay_sweep_failures_total",
		Help: "Total recurring payments that failed during sweeps.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rpay_sweep_duration_seconds",
		Help:    "Duration in seconds of recurring payment sweeps.",
		Buckets: prometheus.DefBuckets,
	})
	mismatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rpay_reconcile_mismatches_total",
		Help: "Reconciliation findings partitioned by kind.",
	}, []string{"kind"})
	registerer.MustRegister(payments, amount, sweeps, failures, duration, mismatches)

	return &Metrics{
		payments: payments, amount: amount, sweeps: sweeps, failures: failures, duration: duration,
		mismatches: mismatches,
	}
}

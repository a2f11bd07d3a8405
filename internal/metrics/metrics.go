// Package metrics exposes prometheus instrumentation for resolve calls.
// Recording is best-effort: a nil *Metrics is valid and every method on it
// is a no-op, so the library never requires a metrics registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for the resolution pipeline.
type Metrics struct {
	resolves         *prometheus.CounterVec
	validationFails  prometheus.Counter
	resolverErrors   prometheus.Counter
	policyViolations prometheus.Counter
	duration         prometheus.Histogram
}

// New creates and registers the collectors on the given registerer. Pass
// prometheus.DefaultRegisterer for the process default.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "typenv_resolve_total",
			Help: "Resolve calls by result.",
		}, []string{"result"}),
		validationFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "typenv_validation_failures_total",
			Help: "Per-key validation failures.",
		}),
		resolverErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "typenv_resolver_errors_total",
			Help: "Source load failures.",
		}),
		policyViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "typenv_policy_violations_total",
			Help: "Keys rejected by security policies.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "typenv_resolve_duration_seconds",
			Help:    "Wall-clock duration of resolve calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.resolves, m.validationFails, m.resolverErrors, m.policyViolations, m.duration)
	return m
}

// ObserveResolve records one resolve call's outcome and duration.
func (m *Metrics) ObserveResolve(success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.resolves.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// IncValidationFailure counts one per-key validation failure.
func (m *Metrics) IncValidationFailure() {
	if m == nil {
		return
	}
	m.validationFails.Inc()
}

// IncResolverError counts one source load failure.
func (m *Metrics) IncResolverError() {
	if m == nil {
		return
	}
	m.resolverErrors.Inc()
}

// IncPolicyViolation counts one policy rejection.
func (m *Metrics) IncPolicyViolation() {
	if m == nil {
		return
	}
	m.policyViolations.Inc()
}

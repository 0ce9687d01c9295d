// Package metrics exposes Prometheus instrumentation for the advisor's
// reflection runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records reflection outcomes. A nil *Metrics is valid and
// records nothing, so callers never need to guard their observations.
type Metrics struct {
	relevanceIterations  prometheus.Histogram
	generationIterations prometheus.Histogram
	terminalReasons      *prometheus.CounterVec
	providerFailures     *prometheus.CounterVec
	runDuration          prometheus.Histogram
}

// New registers the advisor metrics with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		relevanceIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "advisor_relevance_iterations",
			Help:    "Query rewrites performed per run before the context was accepted or the budget ran out.",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
		generationIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "advisor_generation_iterations",
			Help:    "Regenerations performed per run before the response was accepted or the budget ran out.",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
		terminalReasons: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_terminal_reason_total",
			Help: "Runs by terminal reason.",
		}, []string{"reason"}),
		providerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "advisor_provider_failures_total",
			Help: "Individual collaborator call failures, including ones recovered by retry.",
		}, []string{"operation"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "advisor_run_duration_seconds",
			Help:    "Wall-clock duration of complete advisor runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// ObserveRun records the outcome of one completed run.
func (m *Metrics) ObserveRun(reason string, relevanceIters, generationIters int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.relevanceIterations.Observe(float64(relevanceIters))
	m.generationIterations.Observe(float64(generationIters))
	m.terminalReasons.WithLabelValues(reason).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

// ProviderFailure records one failed collaborator call.
func (m *Metrics) ProviderFailure(operation string) {
	if m == nil {
		return
	}
	m.providerFailures.WithLabelValues(operation).Inc()
}

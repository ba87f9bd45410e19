// Package metrics exports matching engine metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "matchengine"

// Recorder implements matching.Metrics. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	cacheLookups     *prometheus.CounterVec
	strategies       *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	candidatesScored *prometheus.CounterVec
}

// New registers the engine metrics on registry, or on a fresh registry when
// registry is nil.
func New(registry *prometheus.Registry) *Recorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	r := &Recorder{
		registry: registry,
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Score cache lookups by result.",
		}, []string{"result"}),
		strategies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_total",
			Help:      "Scoring strategy attempts by outcome.",
		}, []string{"strategy", "status"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "Embedding provider failures that triggered fallback scoring.",
		}, []string{"provider"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Match request latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"direction"}),
		candidatesScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_scored_total",
			Help:      "Candidates scored, cached or computed.",
		}, []string{"direction"}),
	}

	registry.MustRegister(
		r.cacheLookups,
		r.strategies,
		r.providerFailures,
		r.requestDuration,
		r.candidatesScored,
	)

	return r
}

func (r *Recorder) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *Recorder) StrategyOutcome(strategy string, ok bool) {
	if r == nil {
		return
	}
	status := "error"
	if ok {
		status = "ok"
	}
	r.strategies.WithLabelValues(strategy, status).Inc()
}

func (r *Recorder) ProviderFailure(provider string) {
	if r == nil {
		return
	}
	r.providerFailures.WithLabelValues(provider).Inc()
}

func (r *Recorder) RequestDone(direction string, elapsed time.Duration, scored int) {
	if r == nil {
		return
	}
	r.requestDuration.WithLabelValues(direction).Observe(elapsed.Seconds())
	r.candidatesScored.WithLabelValues(direction).Add(float64(scored))
}

// Registry returns the registry the metrics are registered on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry:          r.registry,
		EnableOpenMetrics: false,
	})
}

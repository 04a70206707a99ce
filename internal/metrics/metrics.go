// Package metrics holds the Prometheus collectors exported by the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for the valuation service.
// A nil *Registry is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	// ValuationAnomalies counts discarded indexed valuations by reason.
	ValuationAnomalies *prometheus.CounterVec

	// RevaluedHoldings counts revaluation outcomes (updated, skipped, failed).
	RevaluedHoldings *prometheus.CounterVec

	// UpstreamFailures counts failed provider calls by source.
	UpstreamFailures *prometheus.CounterVec

	// ReconstructionDuration times history reconstructions by granularity.
	ReconstructionDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with all collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		ValuationAnomalies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_valuation_anomalies_total",
				Help: "Indexed valuations discarded by the plausibility check",
			},
			[]string{"reason"},
		),

		RevaluedHoldings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_revalued_holdings_total",
				Help: "Holdings processed by batch revaluation by outcome",
			},
			[]string{"outcome"},
		),

		UpstreamFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_upstream_failures_total",
				Help: "Failed calls to market data providers",
			},
			[]string{"source"},
		),

		ReconstructionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portfolio_history_reconstruction_seconds",
				Help:    "Duration of history reconstructions",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"granularity"},
		),
	}

	r.registry.MustRegister(
		r.ValuationAnomalies,
		r.RevaluedHoldings,
		r.UpstreamFailures,
		r.ReconstructionDuration,
		collectors.NewGoCollector(),
	)
	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Anomaly records a discarded valuation.
func (r *Registry) Anomaly(reason string) {
	if r == nil {
		return
	}
	r.ValuationAnomalies.WithLabelValues(reason).Inc()
}

// Revalued records the outcome of one holding in a batch revaluation.
func (r *Registry) Revalued(outcome string) {
	if r == nil {
		return
	}
	r.RevaluedHoldings.WithLabelValues(outcome).Inc()
}

// UpstreamFailure records a failed provider call.
func (r *Registry) UpstreamFailure(source string) {
	if r == nil {
		return
	}
	r.UpstreamFailures.WithLabelValues(source).Inc()
}

// ObserveReconstruction records how long a reconstruction took.
func (r *Registry) ObserveReconstruction(granularity string, d time.Duration) {
	if r == nil {
		return
	}
	r.ReconstructionDuration.WithLabelValues(granularity).Observe(d.Seconds())
}

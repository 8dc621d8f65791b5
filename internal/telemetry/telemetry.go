// Package telemetry exposes Prometheus instrumentation for the optimization
// engine's evaluation pipeline.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EvaluationsTotal counts every candidate evaluation attempted,
	// including failed ones.
	EvaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optimizer_evaluations_total",
		Help: "Total number of candidate evaluations attempted",
	})

	// EvaluationFailures counts evaluations where the backtest collaborator
	// errored, panicked, or the objective could not be computed.
	EvaluationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optimizer_evaluation_failures_total",
		Help: "Number of candidate evaluations that failed",
	})

	// ConstraintViolations counts candidates rejected by a hard metric
	// constraint.
	ConstraintViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optimizer_constraint_violations_total",
		Help: "Number of candidates rejected by a metric constraint",
	})

	// EvaluationDuration tracks wall-clock seconds spent per backtest call.
	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimizer_evaluation_duration_seconds",
		Help:    "Duration of individual backtest evaluations",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RegisterHandlers registers the metrics endpoint on an HTTP mux
func RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", Handler())
}

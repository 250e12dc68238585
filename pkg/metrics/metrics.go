package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registrations counts registration attempts by result
	// (created|duplicate|closed|error).
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatehouse_registrations_total",
			Help: "Total number of registration attempts",
		},
		[]string{"result"},
	)

	// Inspections counts inspector decisions by verdict (accepted|rejected)
	// and whether the decision was forced.
	Inspections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatehouse_inspections_total",
			Help: "Total number of inspection decisions",
		},
		[]string{"verdict", "forced"},
	)

	// Activations counts activation attempts by result
	// (success|expired|not_found|error).
	Activations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatehouse_activations_total",
			Help: "Total number of activation attempts",
		},
		[]string{"result"},
	)

	// SweepDeletions counts accounts and profiles removed by the maintenance
	// sweeps, labelled by sweep (expired|rejected) and kind (account|profile).
	SweepDeletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatehouse_sweep_deletions_total",
			Help: "Total number of records removed by maintenance sweeps",
		},
		[]string{"sweep", "kind"},
	)

	// AuthAttempts records inspector authentication attempts by result
	// (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatehouse_auth_attempts_total",
			Help: "Total number of inspector authentication attempts",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gatehouse_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

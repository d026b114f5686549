// Package metrics exposes Prometheus instrumentation for convergence
// runs. It has no dependency on internal/convergence; callers wire it
// in via the orchestrator's hook options (WithOnRoundComplete,
// WithOnTerminate) so the core state machine stays free of telemetry
// concerns.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	global     *Metrics
	globalOnce sync.Once
)

// Metrics holds Prometheus collectors for convergence runs.
type Metrics struct {
	RoundsTotal       *prometheus.CounterVec
	RoundStability    prometheus.Histogram
	RunsTotal         *prometheus.CounterVec
	LockingViolations prometheus.Counter
}

// New creates and registers convergence metrics.
//
// sync.Once guards registration so repeated calls (e.g. across
// concurrent test runs sharing the default registry) never panic
// with "duplicate metrics collector registration".
//
// Metrics:
//   - convergence_rounds_total{phase} - rounds executed, by phase
//   - convergence_round_stability - histogram of per-round overall stability
//   - convergence_runs_total{termination_reason} - completed runs, by termination reason
//   - convergence_locking_violations_total - refiner-round locked-structure violations
func New() *Metrics {
	globalOnce.Do(func() {
		global = &Metrics{
			RoundsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "convergence_rounds_total",
					Help: "Total number of convergence rounds executed",
				},
				[]string{"phase"},
			),
			RoundStability: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "convergence_round_stability",
					Help:    "Overall stability score computed per round",
					Buckets: prometheus.LinearBuckets(0, 0.1, 11),
				},
			),
			RunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "convergence_runs_total",
					Help: "Total number of convergence runs, by termination reason",
				},
				[]string{"termination_reason"},
			),
			LockingViolations: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "convergence_locking_violations_total",
					Help: "Total number of locked-structure violations detected in refiner rounds",
				},
			),
		}
	})
	return global
}

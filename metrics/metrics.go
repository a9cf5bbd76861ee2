// Package metrics exposes run and navigation counters on the default
// Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"

	OutcomeComplete = "complete"
	OutcomePartial  = "partial"
	OutcomeFailed   = "failed"

	RunCompleted = "completed"
	RunCanceled  = "canceled"
	RunFailed    = "failed"
)

var (
	NavigationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "langtable",
			Name:      "navigation_attempts_total",
			Help:      "Navigation attempts by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	Items = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "langtable",
			Name:      "items_total",
			Help:      "Detail pages processed by outcome",
		},
		[]string{"outcome"}, // "complete", "partial", "failed"
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "langtable",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of a run",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68m
		},
	)

	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "langtable",
			Name:      "runs_total",
			Help:      "Finished runs by status",
		},
		[]string{"status"}, // "completed", "canceled", "failed"
	)
)

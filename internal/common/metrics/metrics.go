// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IntentResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_resolutions_total",
			Help: "Total number of resolved operator intents",
		},
		[]string{"kind", "source"}, // source: remote, local
	)

	ClassifierFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_fallbacks_total",
			Help: "Total number of remote classifier failures recovered by the local matcher",
		},
		[]string{"reason"},
	)

	ActionDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "action_dispatch_total",
			Help: "Total number of dispatched actions by outcome",
		},
		[]string{"kind", "outcome"}, // outcome: succeeded, failed, needs_more_info or a lowercased error code
	)

	ActionDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "action_dispatch_duration_seconds",
			Help:    "Duration of action execution calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"kind"},
	)

	SlotFillingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_filling_transitions_total",
			Help: "Slot-filling state transitions",
		},
		[]string{"from", "to"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "route", "status"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)
)

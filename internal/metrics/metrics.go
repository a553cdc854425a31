// Package metrics holds the process-wide Prometheus collectors. Registered
// once via promauto; served by the metrics router in internal/api.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScoringRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auricite_scoring_runs_total",
		Help: "Scoring pipeline runs by outcome.",
	}, []string{"outcome"})

	ScoringDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "auricite_scoring_duration_seconds",
		Help:    "End-to-end scoring pipeline latency.",
		Buckets: prometheus.DefBuckets,
	})

	MethodUnavailable = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auricite_scoring_method_unavailable_total",
		Help: "Remote scoring method failures by method.",
	}, []string{"method"})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auricite_jobs_processed_total",
		Help: "Jobs processed by type and outcome.",
	}, []string{"type", "outcome"})

	JobsRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auricite_jobs_requeued_total",
		Help: "Jobs requeued by the stuck-job reconciler.",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auricite_events_published_total",
		Help: "Broker events published by outcome.",
	}, []string{"outcome"})
)

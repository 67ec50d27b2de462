package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_runs_started_total",
		Help: "Total number of dispatcher runs started.",
	})

	RunsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_runs_failed_total",
		Help: "Total number of dispatcher runs that failed to fetch a batch.",
	})

	EventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_events_processed_total",
		Help: "Total number of events fully processed and marked as such.",
	})

	EventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_events_skipped_total",
		Help: "Total number of events skipped because another run claimed them.",
	})

	EventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_events_failed_total",
		Help: "Total number of events released back to pending after a persistence failure.",
	})

	FindingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_findings_created_total",
		Help: "Total number of findings created, labelled by severity.",
	}, []string{"severity"})

	TasksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_tasks_created_total",
		Help: "Total number of tasks created, labelled by kind.",
	}, []string{"kind"})

	DetectorErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_detector_errors_total",
		Help: "Total number of detector failures converted to processing_error findings.",
	}, []string{"detector"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentinel_run_duration_ms",
		Help:    "End-to-end dispatcher run latency in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 10000},
	})
)

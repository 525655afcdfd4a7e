// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// Text-to-SQL pipeline metrics.
var (
	TextToSQLRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text_to_sql_requests_total",
			Help: "Questions handled by the text-to-SQL pipeline, by outcome",
		},
		[]string{"outcome"},
	)

	ValidationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text_to_sql_validation_rejections_total",
			Help: "Generated statements rejected by the safety validator",
		},
		[]string{"reason"},
	)

	SQLRepairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text_to_sql_repairs_total",
			Help: "Deterministic repairs applied to generated statements",
		},
		[]string{"kind"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "text_to_sql_generation_duration_seconds",
			Help:    "Latency of text generation calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"purpose", "status"},
	)

	ExecutedRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "text_to_sql_result_rows",
			Help:    "Rows returned per executed statement",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		},
	)
)

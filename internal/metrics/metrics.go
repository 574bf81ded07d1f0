// Package metrics exposes Prometheus instrumentation for the background
// pipelines.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_jobs_processed_total",
			Help: "Total number of background jobs processed",
		},
		[]string{"type", "status"},
	)

	jobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentlens_job_duration_seconds",
			Help:    "Background job execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"type"},
	)

	scoresWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_scores_written_total",
			Help: "Total number of scores upserted, by score name",
		},
		[]string{"name"},
	)

	moderationResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentlens_moderation_results_total",
			Help: "Total number of moderation results, by action",
		},
		[]string{"action"},
	)
)

// RecordJobProcessed counts one finished job.
func RecordJobProcessed(jobType, status string) {
	jobsProcessedTotal.WithLabelValues(jobType, status).Inc()
}

// ObserveJobDuration records how long one job took.
func ObserveJobDuration(jobType string, seconds float64) {
	jobDurationSeconds.WithLabelValues(jobType).Observe(seconds)
}

// RecordScoreWritten counts one score upsert.
func RecordScoreWritten(name string) {
	scoresWrittenTotal.WithLabelValues(name).Inc()
}

// RecordModerationResult counts one moderation outcome.
func RecordModerationResult(action string) {
	moderationResultsTotal.WithLabelValues(action).Inc()
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

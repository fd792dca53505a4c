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

	AssessmentsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessments_scored_total",
			Help: "Total number of assessments scored, by resulting maturity level",
		},
		[]string{"level"},
	)

	AssessmentsCapApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assessments_cap_applied_total",
			Help: "Total number of assessments where the weakest-link cap lowered the overall score",
		},
	)

	LeadsByIntensity = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_by_cta_intensity_total",
			Help: "Total number of scored leads, by resolved CTA intensity",
		},
		[]string{"intensity"},
	)

	ScoringConfigReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_config_reloads_total",
			Help: "Scoring config cache refreshes, by outcome",
		},
		[]string{"outcome"},
	)
)

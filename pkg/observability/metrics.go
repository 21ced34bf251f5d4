package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// RunsTotal tracks the total number of optimization runs
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexopt_runs_total",
			Help: "Total number of optimization runs",
		},
		[]string{"status"}, // status: success, failed
	)

	// RunDuration measures how long a whole run takes in seconds
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "indexopt_run_duration_seconds",
			Help:    "Optimization run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		},
	)

	// LastSuccessfulRun records the unix timestamp of the last successful run
	LastSuccessfulRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexopt_last_successful_run_timestamp",
			Help: "Unix timestamp of the last successful optimization run",
		},
	)

	// IndicesListed tracks how many indices the last listing returned
	IndicesListed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexopt_indices_listed",
			Help: "Number of indices returned by the last listing",
		},
	)

	// DecisionsTotal counts selector decisions
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexopt_decisions_total",
			Help: "Total number of selector decisions",
		},
		[]string{"granularity", "outcome"},
	)

	// OptimizeTotal counts force-merge attempts
	OptimizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexopt_optimize_total",
			Help: "Total number of index optimizations",
		},
		[]string{"granularity", "status"}, // status: success, failed, dry_run
	)

	// OptimizeDuration measures force-merge duration in seconds
	OptimizeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indexopt_optimize_duration_seconds",
			Help:    "Index optimization duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 0.1s to ~27m
		},
		[]string{"granularity"},
	)

	// SchedulerActive indicates whether the cron scheduler is running
	SchedulerActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexopt_scheduler_active",
			Help: "Whether the scheduler is active (1=active, 0=inactive)",
		},
	)

	// ErrorsTotal counts total number of errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexopt_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordRun records the outcome of a run
func RecordRun(status string, duration float64, finishedAt float64) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(duration)

	if status == "success" {
		LastSuccessfulRun.Set(finishedAt)
	}
}

// RecordIndicesListed records the size of an index listing
func RecordIndicesListed(count int) {
	IndicesListed.Set(float64(count))
}

// RecordDecision records a selector decision
func RecordDecision(granularity, outcome string) {
	DecisionsTotal.WithLabelValues(granularity, outcome).Inc()
}

// RecordOptimize records a force-merge attempt
func RecordOptimize(granularity, status string, duration float64) {
	OptimizeTotal.WithLabelValues(granularity, status).Inc()
	OptimizeDuration.WithLabelValues(granularity).Observe(duration)
}

// RecordDryRun records an optimization skipped because of dry-run mode
func RecordDryRun(granularity string) {
	OptimizeTotal.WithLabelValues(granularity, "dry_run").Inc()
}

// RecordSchedulerActive records whether the scheduler is running
func RecordSchedulerActive(active bool) {
	if active {
		SchedulerActive.Set(1)

		return
	}

	SchedulerActive.Set(0)
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

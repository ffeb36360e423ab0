package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetryAttempts tracks retry decisions per operation.
	// outcome: retried, non_retryable, exhausted
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointboard_retry_attempts_total",
			Help: "Total number of retry decisions made by the backoff executor",
		},
		[]string{"op", "outcome"},
	)

	// TaskCompletions tracks completion requests by result.
	// result: completed, already_completed, lost_race
	TaskCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointboard_task_completions_total",
			Help: "Total number of task completion requests",
		},
		[]string{"result"},
	)

	// PointsAwarded tracks ledger entries written per reason.
	PointsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointboard_points_awarded_total",
			Help: "Total number of ledger entries written",
		},
		[]string{"reason"},
	)

	// PointsAwardFailures tracks completion awards that ended in reconciliation.
	PointsAwardFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pointboard_points_award_failures_total",
			Help: "Total number of task completion awards that could not be written",
		},
	)

	// ReconciliationPending tracks the operator queue length.
	ReconciliationPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pointboard_reconciliation_pending",
			Help: "Number of point awards waiting for operator reconciliation",
		},
	)

	// ListReorders tracks bulk reorder requests by result.
	// result: ok, validation, fatal, error
	ListReorders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointboard_list_reorders_total",
			Help: "Total number of bulk list reorder requests",
		},
		[]string{"result"},
	)

	// ReorderBatchSize tracks how many lists a single reorder moves.
	ReorderBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pointboard_reorder_batch_size",
			Help:    "Number of lists in a bulk reorder request",
			Buckets: prometheus.LinearBuckets(1, 4, 8),
		},
	)

	// DBConnectionPoolUsage tracks open connections as a percentage of the pool.
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pointboard_db_connection_pool_usage_percent",
			Help: "Open database connections as a percentage of the configured maximum",
		},
	)
)

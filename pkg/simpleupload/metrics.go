package simpleupload

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationsTotal counts coordinator operations by outcome.
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpleupload_operations_total",
			Help: "Upload coordinator operations by variant, operation and result",
		},
		[]string{"variant", "operation", "result"},
	)

	// cleanupFailuresTotal counts swallowed removal failures (orphan leaks).
	cleanupFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpleupload_cleanup_failures_total",
			Help: "Best-effort file removals that failed and left an orphaned file",
		},
		[]string{"variant", "operation"},
	)

	// uploadedBytesTotal counts bytes placed in the blob store.
	uploadedBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpleupload_uploaded_bytes_total",
			Help: "Bytes written to the blob store",
		},
		[]string{"variant"},
	)

	reconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpleupload_reconcile_runs_total",
			Help: "Reconciliation runs",
		},
		[]string{"variant"},
	)

	reconcileIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpleupload_reconcile_issues_total",
			Help: "Issues found by reconciliation",
		},
		[]string{"variant", "type"},
	)

	reconcileDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "simpleupload_reconcile_duration_seconds",
			Help:    "Duration of reconciliation runs",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"variant"},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

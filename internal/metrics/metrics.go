package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PunchesSynced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_punches_synced_total",
		Help: "Total number of device punches written to the ledger.",
	})

	PunchesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_punches_skipped_total",
		Help: "Total number of duplicate or failed punches skipped during sync.",
	})

	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_sync_runs_total",
		Help: "Total number of sync attempts, labelled by outcome.",
	}, []string{"status"})

	Corrections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_corrections_total",
		Help: "Total number of correction evaluations, labelled by branch and outcome.",
	}, []string{"branch", "status"})

	ManualPunchesFolded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_manual_punches_folded_total",
		Help: "Total number of manual punch requests folded into ledgers.",
	})
)

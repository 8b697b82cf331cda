package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event ingestion metrics
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowline_events_ingested_total",
			Help: "Total number of operational events accepted",
		},
		[]string{"source", "location_type"},
	)

	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowline_events_rejected_total",
			Help: "Total number of operational events rejected by validation",
		},
		[]string{"source", "reason"},
	)

	// Analytics engine metrics
	ComputationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowline_computations_total",
			Help: "Total number of analytics computations by engine and status",
		},
		[]string{"engine", "status"},
	)

	ComputationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowline_computation_duration_seconds",
			Help:    "Duration of analytics computations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowline_cache_hits_total",
			Help: "Total number of metrics cache hits",
		},
		[]string{"kind"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowline_cache_misses_total",
			Help: "Total number of metrics cache misses",
		},
		[]string{"kind"},
	)

	// Ledger metrics
	LedgerAppends = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowline_ledger_appends_total",
			Help: "Total number of entries appended to the ROI ledger",
		},
	)

	LedgerConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowline_ledger_append_conflicts_total",
			Help: "Total number of optimistic concurrency conflicts during append",
		},
	)

	LedgerVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowline_ledger_verifications_total",
			Help: "Total number of ledger entry verifications by outcome",
		},
		[]string{"outcome"},
	)

	ChainLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flowline_ledger_chain_length",
			Help: "Current number of entries in the ROI ledger chain",
		},
	)
)

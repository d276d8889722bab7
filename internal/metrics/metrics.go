package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters and histograms for the reconciliation engine, partitioned by token
// symbol where the cardinality is bounded.

var (
	// Ledger
	ClaimsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "ledger",
		Name:      "claims_created_total",
		Help:      "Total claim transactions recorded",
	}, []string{"source"})

	ClaimsImportFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "ledger",
		Name:      "claims_import_failed_total",
		Help:      "Total claim rows rejected during bulk import",
	})

	AnchorsUpsertedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "ledger",
		Name:      "anchors_upserted_total",
		Help:      "Total anchor upserts, split by inserted vs refreshed",
	}, []string{"outcome"})

	// Matching
	MatchingRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "matching",
		Name:      "runs_total",
		Help:      "Total matching runs executed",
	})

	MatchingRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reconciler",
		Subsystem: "matching",
		Name:      "run_duration_seconds",
		Help:      "Matching run duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	SuggestionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "matching",
		Name:      "suggestions_created_total",
		Help:      "Total match suggestions created",
	})

	MatchDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "matching",
		Name:      "decisions_total",
		Help:      "Total operator match decisions",
	}, []string{"decision"}) // approve, force, reject

	MatchScoreDistribution = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reconciler",
		Subsystem: "matching",
		Name:      "suggestion_score",
		Help:      "Score distribution of created suggestions",
		Buckets:   []float64{50, 60, 70, 75, 80, 85, 90, 95, 100},
	})

	// Risk
	RiskRecalculationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "risk",
		Name:      "recalculations_total",
		Help:      "Total wallet risk score calculations",
	})

	RiskRecalculationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "risk",
		Name:      "recalculation_errors_total",
		Help:      "Total failed wallet risk score calculations",
	})

	RiskCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "risk",
		Name:      "cache_hits_total",
		Help:      "Total risk profile cache hits",
	})

	RiskCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "risk",
		Name:      "cache_misses_total",
		Help:      "Total risk profile cache misses",
	})

	// Drift
	DriftChecksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "drift",
		Name:      "checks_total",
		Help:      "Total drift detection runs executed",
	})

	DriftCheckErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "drift",
		Name:      "check_errors_total",
		Help:      "Total balance source query failures during drift detection",
	})

	DriftAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "drift",
		Name:      "alerts_total",
		Help:      "Total drift records at warning or critical level",
	}, []string{"level"})

	DriftCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reconciler",
		Subsystem: "drift",
		Name:      "check_duration_seconds",
		Help:      "Drift detection run duration",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// Database pool
	DBPoolOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reconciler",
		Subsystem: "postgres",
		Name:      "db_pool_open",
		Help:      "Current number of open PostgreSQL connections in the pool",
	})

	DBPoolInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reconciler",
		Subsystem: "postgres",
		Name:      "db_pool_in_use",
		Help:      "Current number of in-use PostgreSQL connections in the pool",
	})

	DBPoolIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reconciler",
		Subsystem: "postgres",
		Name:      "db_pool_idle",
		Help:      "Current number of idle PostgreSQL connections in the pool",
	})

	DBPoolWaitCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reconciler",
		Subsystem: "postgres",
		Name:      "db_pool_wait_count",
		Help:      "Cumulative count of waits for PostgreSQL connections from pool",
	})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Total alerts sent",
	}, []string{"channel", "alert_type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconciler",
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts skipped due to cooldown",
	}, []string{"channel", "alert_type"})
)

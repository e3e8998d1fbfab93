package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the vault service.
type Metrics struct {
	// --- Engine ---
	EngineCallsApplied  *prometheus.CounterVec
	EngineCallsRejected *prometheus.CounterVec
	EngineCallDuration  *prometheus.HistogramVec
	EngineSequence      prometheus.Gauge

	// --- Accounting ---
	IdleAssets    prometheus.Gauge
	DebtAssets    prometheus.Gauge
	TotalSupply   prometheus.Gauge
	SharePrice    prometheus.Gauge
	Watermark     prometheus.Gauge
	PendingInvest prometheus.Gauge

	// --- Routing ---
	RoutesPlanned   *prometheus.CounterVec
	RouteShortfalls prometheus.Counter
	RouteLegs       *prometheus.HistogramVec

	// --- Fees ---
	FeesCharged *prometheus.CounterVec

	// --- Cross-chain ---
	OperationsDispatched *prometheus.CounterVec
	OperationsResolved   *prometheus.CounterVec
	OperationsInflight   prometheus.Gauge

	// --- Gateway transport ---
	CallbacksReceived     *prometheus.CounterVec
	CallbackErrors        *prometheus.CounterVec
	IdempotencyDuplicates *prometheus.CounterVec
	DedupCacheSize        prometheus.Gauge
	DedupTier2Errors      prometheus.Counter
	PublishDrops          prometheus.Counter
	ProjectionDrops       prometheus.Counter
	ProjectionErrors      prometheus.Counter

	// --- Persistence ---
	PersistEventsWritten prometheus.Counter
	PersistBatchSize     prometheus.Histogram
	PersistBatchDur      prometheus.Histogram
	PersistErrors        *prometheus.CounterVec
	PersistRetry         prometheus.Counter
	PersistLastSequence  prometheus.Gauge
	SnapshotTaken        prometheus.Counter
	SnapshotSizeBytes    prometheus.Gauge

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers all metrics on reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	callBuckets := []float64{
		0.00001, 0.00005, 0.0001, 0.0005, 0.001,
		0.005, 0.01, 0.05, 0.1, 0.5, 1,
	}

	return &Metrics{
		EngineCallsApplied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_engine_calls_applied_total",
			Help: "Engine calls that completed and emitted an event",
		}, []string{"event_type"}),

		EngineCallsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_engine_calls_rejected_total",
			Help: "Engine calls rejected by a guard",
		}, []string{"call", "reason"}),

		EngineCallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vault_engine_call_duration_seconds",
			Help:    "Time to apply one engine call",
			Buckets: callBuckets,
		}, []string{"call"}),

		EngineSequence: f.NewGauge(prometheus.GaugeOpts{
			Name: "vault_engine_sequence",
			Help: "Last event sequence emitted",
		}),

		IdleAssets: f.NewGauge(prometheus.GaugeOpts{
			Name: "vault_idle_assets",
			Help: "Idle base assets held by the vault",
		}),
		DebtAssets: f.NewGauge(prometheus.GaugeOpts{
			Name: "vault_debt_assets",
			Help: "Assets attributed to sub-vaults",
		}),
		TotalSupply: f.NewGauge(prometheus.GaugeOpts{
			Name: "vault_total_supply",
			Help: "Vault shares outstanding",
		}),
		SharePrice: f.NewGauge(prometheus.GaugeOpts{
			Name: "vault_share_price",
			Help: "Current share price, decimal scaled",
		}),
		Watermark: f.NewGauge(prometheus.GaugeOpts{
			Name: "vault_watermark",
			Help: "High-water-mark share price, decimal scaled",
		}),
		PendingInvest: f.NewGauge(prometheus.GaugeOpts{
			Name: "vault_pending_xchain_invest_assets",
			Help: "Assets dispatched to remote vaults and not yet settled",
		}),

		RoutesPlanned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_routes_planned_total",
			Help: "Withdrawal routes executed, by shape",
		}, []string{"shape"}),
		RouteShortfalls: f.NewCounter(prometheus.CounterOpts{
			Name: "vault_route_shortfalls_total",
			Help: "Routes that could not cover their target",
		}),
		RouteLegs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vault_route_legs",
			Help:    "Vault legs per route",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 30},
		}, []string{"side"}),

		FeesCharged: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_fees_charged_assets_total",
			Help: "Fee assets charged, by scope and kind",
		}, []string{"scope", "kind"}),

		OperationsDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_xchain_operations_dispatched_total",
			Help: "Cross-chain operations dispatched",
		}, []string{"kind"}),
		OperationsResolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_xchain_operations_resolved_total",
			Help: "Cross-chain operations settled or failed",
		}, []string{"kind", "status"}),
		OperationsInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "vault_xchain_operations_inflight",
			Help: "Cross-chain operations awaiting a callback",
		}),

		CallbacksReceived: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_gateway_callbacks_received_total",
			Help: "Gateway callbacks consumed from NATS",
		}, []string{"type"}),
		CallbackErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_gateway_callback_errors_total",
			Help: "Gateway callbacks that failed to parse or apply",
		}, []string{"type", "reason"}),
		IdempotencyDuplicates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_idempotency_duplicates_total",
			Help: "Duplicate callbacks dropped",
		}, []string{"type", "tier"}),
		DedupCacheSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "vault_dedup_cache_size",
			Help: "Keys held in the in-memory dedup cache",
		}),
		DedupTier2Errors: f.NewCounter(prometheus.CounterOpts{
			Name: "vault_dedup_tier2_errors_total",
			Help: "Postgres dedup lookups that failed",
		}),
		PublishDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "vault_publish_drops_total",
			Help: "Outbound events dropped because the publish channel was full",
		}),
		ProjectionDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "vault_projection_drops_total",
			Help: "Events not projected because the projection channel was full",
		}),
		ProjectionErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "vault_projection_errors_total",
			Help: "Read-model updates that failed",
		}),

		PersistEventsWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "vault_persist_events_written_total",
			Help: "Events written to Postgres",
		}),
		PersistBatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vault_persist_batch_size",
			Help:    "Events per persistence batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
		PersistBatchDur: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vault_persist_batch_duration_seconds",
			Help:    "Time to commit one persistence batch",
			Buckets: callBuckets,
		}),
		PersistErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_persist_errors_total",
			Help: "Persistence failures",
		}, []string{"stage"}),
		PersistRetry: f.NewCounter(prometheus.CounterOpts{
			Name: "vault_persist_retries_total",
			Help: "Persistence batch retries",
		}),
		PersistLastSequence: f.NewGauge(prometheus.GaugeOpts{
			Name: "vault_persist_last_sequence",
			Help: "Last sequence committed to Postgres",
		}),
		SnapshotTaken: f.NewCounter(prometheus.CounterOpts{
			Name: "vault_snapshots_taken_total",
			Help: "State snapshots written",
		}),
		SnapshotSizeBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "vault_snapshot_size_bytes",
			Help: "Size of the last snapshot",
		}),

		QueryRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_query_requests_total",
			Help: "Query API requests",
		}, []string{"method"}),
		QueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vault_query_duration_seconds",
			Help:    "Query API latency",
			Buckets: callBuckets,
		}, []string{"method"}),
		QueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_query_errors_total",
			Help: "Query API errors",
		}, []string{"method", "code"}),
	}
}

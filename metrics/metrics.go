package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// EngineRunsTotal counts per-merchant engine passes by result.
	EngineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "insight",
		Subsystem: "engine",
		Name:      "runs_total",
		Help:      "Total number of per-merchant insight generation passes, labeled by result.",
	}, []string{"result"})

	// EngineRunDuration is the wall time of one merchant's pass.
	EngineRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "insight",
		Subsystem: "engine",
		Name:      "run_duration_seconds",
		Help:      "Wall time of one merchant's insight generation pass.",
		// Passes are in-memory over already-fetched data; keep buckets tight.
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// InsightsGeneratedTotal counts persisted insights by category.
	InsightsGeneratedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "insight",
		Subsystem: "engine",
		Name:      "insights_generated_total",
		Help:      "Total number of insights generated and persisted, labeled by category.",
	}, []string{"category"})

	// SyncRunsTotal counts merchant order/refund syncs by result.
	SyncRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "insight",
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Total number of merchant data syncs, labeled by result.",
	}, []string{"result"})

	// OrdersSyncedTotal counts orders upserted by the sync service.
	OrdersSyncedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "insight",
		Subsystem: "sync",
		Name:      "orders_synced_total",
		Help:      "Total number of orders upserted from the commerce platform.",
	})
)

// Register registers service metrics with the default Prometheus
// registry. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			EngineRunsTotal,
			EngineRunDuration,
			InsightsGeneratedTotal,
			SyncRunsTotal,
			OrdersSyncedTotal,
		)
	})
}

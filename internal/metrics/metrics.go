package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of one cache instance. Each instance registers
// on its own registerer so that several caches can live in one process.
type Metrics struct {
	Consumed       *prometheus.CounterVec
	Removed        *prometheus.CounterVec
	Evicted        *prometheus.CounterVec
	SpamRejected   prometheus.Counter
	RelayPushes    prometheus.Counter
	BundlerDropped *prometheus.CounterVec
	StoreSize      *prometheus.GaugeVec
	IngestDuration prometheus.Histogram
}

// New registers the cache collectors on reg. A nil reg uses a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Consumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notecache_events_consumed_total",
			Help: "Events offered to the cache by merge strategy and outcome",
		}, []string{"strategy", "outcome"}),

		Removed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notecache_notes_removed_total",
			Help: "Notes removed from the graph by reason",
		}, []string{"reason"}),

		Evicted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notecache_entities_evicted_total",
			Help: "Entities dropped by capacity eviction by store",
		}, []string{"store"}),

		SpamRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "notecache_spam_rejected_total",
			Help: "Events rejected by the anti-spam filter",
		}),

		RelayPushes: factory.NewCounter(prometheus.CounterOpts{
			Name: "notecache_relay_pushes_total",
			Help: "Newer versions or deletions pushed back to stale relays",
		}),

		BundlerDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notecache_bundler_dropped_total",
			Help: "Notification batches dropped because the buffer was full",
		}, []string{"flow"}),

		StoreSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "notecache_store_size",
			Help: "Current number of entities per store",
		}, []string{"store"}),

		IngestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "notecache_ingest_duration_seconds",
			Help:    "Duration of a single event ingestion",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
	}
}

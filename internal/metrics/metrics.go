// Package metrics holds the prometheus instruments for the data layer.
// Collectors are constructed explicitly and registered on a caller-supplied
// registry, so tests and the two execution contexts never fight over the
// default registerer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters and gauges exported by the data layer.
type Metrics struct {
	// SavesTotal counts Save calls partitioned by mode ("online"/"offline").
	SavesTotal *prometheus.CounterVec

	// ReconcilesTotal counts reconciliation passes by outcome
	// ("success"/"error"/"noop").
	ReconcilesTotal *prometheus.CounterVec

	// PendingMutations is the current pending-queue depth (the UI badge).
	PendingMutations prometheus.Gauge

	// CacheRequestsTotal counts cache-policy decisions by strategy and
	// result ("hit"/"miss"/"bypass").
	CacheRequestsTotal *prometheus.CounterVec

	// PartitionsEvicted counts whole-partition generational evictions.
	PartitionsEvicted prometheus.Counter
}

// New builds the metric set and registers it on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SavesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avidex_saves_total",
			Help: "Discovery saves by mode.",
		}, []string{"mode"}),
		ReconcilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avidex_reconciles_total",
			Help: "Reconciliation passes by outcome.",
		}, []string{"outcome"}),
		PendingMutations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "avidex_pending_mutations",
			Help: "Pending mutation queue depth.",
		}),
		CacheRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avidex_cache_requests_total",
			Help: "Intercepted requests by strategy and result.",
		}, []string{"strategy", "result"}),
		PartitionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "avidex_cache_partitions_evicted_total",
			Help: "Cache partitions deleted by generational eviction.",
		}),
	}

	reg.MustRegister(
		m.SavesTotal,
		m.ReconcilesTotal,
		m.PendingMutations,
		m.CacheRequestsTotal,
		m.PartitionsEvicted,
	)
	return m
}

// NewNop returns a metric set backed by a throwaway registry, for callers
// that do not export metrics (tests, the short-lived agent).
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

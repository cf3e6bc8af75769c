// Package metrics wires the tile cache's counters into prometheus, grounded
// on the teacher's cacheMetrics() (internal/mapcache/service.go):
// package-level prometheus.NewCounter + prometheus.Register calls, bundled
// into a small struct rather than left as bare package globals.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/gauge the render and retrieval paths update.
type Metrics struct {
	RenderCount    prometheus.Counter
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	LockWaits      prometheus.Counter
	SeedOK         prometheus.Counter
	SeedFailed     prometheus.Counter
	QueueDepth     prometheus.Gauge
}

// New builds and registers every metric against the default registry. A
// second call within the same process (e.g. in tests) would fail
// registration, so callers that need isolation should use NewWithRegisterer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer builds metrics against a caller-supplied registry, so
// tests can use prometheus.NewRegistry() instead of colliding on the
// package-global default.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RenderCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tilecache_metatile_rendering_count",
			Help: "Count of metatile render operations performed.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tilecache_cache_hits_total",
			Help: "Count of cache Get calls that found a tile.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tilecache_cache_misses_total",
			Help: "Count of cache Get calls that did not find a tile.",
		}),
		LockWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tilecache_lock_waits_total",
			Help: "Count of metatile lock acquisitions that had to wait for another owner.",
		}),
		SeedOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tilecache_seed_ok_total",
			Help: "Count of seeder commands that completed successfully.",
		}),
		SeedFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tilecache_seed_failed_total",
			Help: "Count of seeder commands that failed.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tilecache_seed_queue_depth",
			Help: "Number of commands currently queued for seeder workers.",
		}),
	}
	for _, c := range []prometheus.Collector{m.RenderCount, m.CacheHits, m.CacheMisses, m.LockWaits, m.SeedOK, m.SeedFailed, m.QueueDepth} {
		if err := reg.Register(c); err != nil {
			// A constructor that may run more than once in tests can hit
			// its own prior registration; that case alone is harmless.
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
	return m
}

// Package metrics registers the Prometheus instruments for the data layer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// CacheHits counts cache hits by tier (hot, lru, store).
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datakit_cache_hits_total",
			Help: "Cache hits by tier",
		},
		[]string{"tier"},
	)

	// CacheMisses counts reads that fell through every cache tier.
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "datakit_cache_misses_total",
			Help: "Reads that missed all cache tiers",
		},
	)

	// RemoteRequests counts remote API calls by operation and outcome.
	RemoteRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datakit_remote_requests_total",
			Help: "Remote API requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// QueuedWrites counts mutations diverted to the offline queue, by type.
	QueuedWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datakit_queued_writes_total",
			Help: "Mutations queued while offline, by intent type",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(RemoteRequests)
	prometheus.MustRegister(QueuedWrites)
}

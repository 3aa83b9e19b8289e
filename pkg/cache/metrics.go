package cache

import (
	"github.com/Sternrassler/api2xlsx/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by freshness
	CacheHits = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "api2xlsx_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"state"}, // "fresh", "stale"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.With(metrics.Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "api2xlsx_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// Revalidations tracks conditional requests by outcome
	Revalidations = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "api2xlsx_cache_revalidations_total",
			Help: "Total number of conditional requests sent for stale entries",
		},
		[]string{"result"}, // "not_modified", "modified"
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "api2xlsx_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks responses served from the store by backend
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_cache_hits_total",
			Help: "Total number of route responses served from cache",
		},
		[]string{"store"}, // "memory", "redis", "sqlite", "leveldb"
	)

	// CacheMisses tracks eligible requests that had to run the handler
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "route_cache_misses_total",
			Help: "Total number of route cache misses",
		},
	)

	// CacheStores tracks entries written to the store
	CacheStores = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "route_cache_stores_total",
			Help: "Total number of route responses written to cache",
		},
	)

	// CacheInvalidations tracks entries forgotten because a fresh response was requested
	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "route_cache_invalidations_total",
			Help: "Total number of cache entries invalidated",
		},
	)

	// CacheWrittenBytes counts bytes written to the store by backend
	CacheWrittenBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_cache_written_bytes_total",
			Help: "Total bytes written to the route cache store",
		},
		[]string{"store"},
	)

	// ConditionalResponses tracks 304 Not Modified responses
	ConditionalResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "route_cache_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// CacheErrors tracks store operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_cache_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"operation"}, // "has", "get", "put", "forget"
	)
)

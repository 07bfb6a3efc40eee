// Package metrics exposes the Prometheus metrics of the route cache.
// All metrics are defined in pkg/cache and registered via promauto, so
// importing the cache registers them with the default registry.
//
// This package provides the scrape handler and documentation for all
// available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the route cache.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler serving the metrics in Gatherer.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - route_cache_hits_total{store} (Counter): Responses served from the store
//   - route_cache_misses_total (Counter): Eligible requests dispatched to the handler
//   - route_cache_stores_total (Counter): Responses written to the store
//   - route_cache_invalidations_total (Counter): Entries removed on freshness requests or Invalidate
//   - route_cache_written_bytes_total{store} (Counter): Bytes written to the store
//   - route_cache_304_responses_total (Counter): 304 Not Modified responses
//   - route_cache_errors_total{operation} (Counter): Store operation errors (has, get, put, forget)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(route_cache_hits_total[5m])) /
//   (sum(rate(route_cache_hits_total[5m])) + sum(rate(route_cache_misses_total[5m])))
//
//   # Store Error Rate
//   sum by (operation) (rate(route_cache_errors_total[5m]))
//
//   # 304 Response Rate
//   rate(route_cache_304_responses_total[5m]) /
//   (sum(rate(route_cache_hits_total[5m])) + sum(rate(route_cache_misses_total[5m])))

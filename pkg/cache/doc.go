// Package cache provides route response caching primitives.
//
// It covers the parts of the cache layer that do not depend on routing:
//
// - Deterministic, order-independent cache keys (CacheKey, DeriveKey)
// - Cache entries holding the first-stored time and the response body
// - The Store contract implemented by the backends in pkg/store
// - Conditional responses (Last-Modified / If-Modified-Since, 304)
// - Prometheus metrics for observability
//
// # Keys
//
//	key := cache.CacheKey{
//		Route:       "articles.show",
//		PathParams:  map[string]string{"id": "42"},
//		QueryParams: url.Values{"lang": []string{"en"}},
//	}.String()
//	// sternrassler.route-cache.3f0c...
//
// # Entries
//
//	entry, err := store.Get(ctx, key)
//	if cache.IsMiss(err) {
//		entry = cache.NewEntry(body)
//		err = store.Put(ctx, key, entry, 60)
//	}
//
// # Conditional Responses
//
//	result := cache.Finalize(entry, req, nil)
//	result.Write(w) // 304 when If-Modified-Since == Last-Modified, else 200
//
// The If-Modified-Since comparison is an exact string match. A client holding
// an older validator receives the full body.
//
// # Metrics
//
//   - route_cache_hits_total{store} - Responses served from cache
//   - route_cache_misses_total - Eligible requests that ran the handler
//   - route_cache_stores_total - Entries written
//   - route_cache_invalidations_total - Entries forgotten on no-cache requests
//   - route_cache_written_bytes_total{store} - Bytes written per backend
//   - route_cache_304_responses_total - 304 Not Modified responses
//   - route_cache_errors_total{operation} - Store operation errors
package cache

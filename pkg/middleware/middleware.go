// Package middleware caches route responses around an http.Handler.
//
// Each eligible request goes through two phases. Before dispatch the cached
// entry for the request's key is looked up: a hit is served without running
// the handler, and a client freshness request (Cache-Control: no-cache)
// drops the entry first. After dispatch a 200 response is stored unless an
// entry already exists (first writer wins), and the response is finalized
// with Last-Modified, Cache-Control: public and a possible 304.
//
// Store failures never fail a request: they are logged, counted and treated
// as misses.
package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Sternrassler/route-cache/pkg/cache"
	"github.com/Sternrassler/route-cache/pkg/logging"
	"github.com/Sternrassler/route-cache/pkg/policy"
	"github.com/Sternrassler/route-cache/pkg/route"
	"github.com/rs/zerolog"
)

// Values of the X-Cache response header.
const (
	HeaderCacheStatus = "X-Cache"

	StatusHit     = "HIT"
	StatusMiss    = "MISS"
	StatusRefresh = "REFRESH"
)

// Middleware is the route response cache.
type Middleware struct {
	config    policy.Config
	store     cache.Store
	storeName string
	logger    zerolog.Logger
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Middleware) { m.logger = logger }
}

// WithStoreName sets the "store" metric label. Stores exposing a Name method
// are labeled automatically.
func WithStoreName(name string) Option {
	return func(m *Middleware) { m.storeName = name }
}

// New creates the cache middleware. cfg is copied and never modified.
func New(cfg policy.Config, store cache.Store, opts ...Option) *Middleware {
	if store == nil {
		panic("cache store cannot be nil")
	}

	m := &Middleware{
		config:    cfg,
		store:     store,
		storeName: "custom",
		logger:    logging.NewLogger("route-cache"),
	}
	if named, ok := store.(interface{ Name() string }); ok {
		m.storeName = named.Name()
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the configuration the middleware was built with.
func (m *Middleware) Config() policy.Config {
	return m.config
}

// Key derives the cache key for a request to route d.
func (m *Middleware) Key(d *route.Descriptor, r *http.Request) string {
	return cache.DeriveKey(d.Identity(), route.PathParams(r), r.URL.Query())
}

// Wrap binds the cache to one route. It implements route.Binder.
func (m *Middleware) Wrap(d *route.Descriptor, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.serve(d, next, w, r)
	})
}

// Invalidate removes the cached response for route d and the given
// parameters.
func (m *Middleware) Invalidate(ctx context.Context, d *route.Descriptor, pathParams map[string]string, query url.Values) error {
	key := cache.DeriveKey(d.Identity(), pathParams, query)
	if err := m.store.Forget(ctx, key); err != nil {
		return err
	}
	cache.CacheInvalidations.Inc()
	m.logger.Debug().Str("route", d.Identity()).Str("key", key).Msg("Cache entry invalidated")
	return nil
}

func (m *Middleware) serve(d *route.Descriptor, next http.Handler, w http.ResponseWriter, r *http.Request) {
	// Pre-dispatch eligibility
	if !policy.ShouldCache(m.config, d, r.Method) {
		next.ServeHTTP(w, r)
		return
	}

	ctx := r.Context()
	key := m.Key(d, r)
	log := m.logger.With().Str("route", d.Identity()).Str("key", key).Logger()
	status := StatusMiss

	if cache.FreshnessRequested(r) {
		if m.invalidate(ctx, key, log) {
			status = StatusRefresh
		}
	} else if entry := m.lookup(ctx, key, log); entry != nil {
		cache.CacheHits.WithLabelValues(m.storeName).Inc()
		log.Debug().Dur("age", entry.Age()).Msg("Cache hit")
		m.write(w, cache.Finalize(entry, r, nil), StatusHit, log)
		return
	}

	cache.CacheMisses.Inc()

	rec := newRecorder()
	next.ServeHTTP(rec, r)

	// Post-dispatch: only exact 200s are stored, and eligibility is
	// re-evaluated with the same descriptor.
	if rec.StatusCode() != http.StatusOK || !policy.ShouldCache(m.config, d, r.Method) {
		log.Debug().Int("status_code", rec.StatusCode()).Msg("Response not cacheable, passing through")
		if err := rec.flush(w); err != nil {
			log.Warn().Err(err).Msg("Failed to write response")
		}
		return
	}

	entry, ok := m.readOrWrite(ctx, key, policy.ResolveTTL(m.config, d), rec, log)
	if !ok {
		if err := rec.flush(w); err != nil {
			log.Warn().Err(err).Msg("Failed to write response")
		}
		return
	}

	header := rec.Header().Clone()
	header.Del("Content-Length")
	header.Del("ETag")
	m.write(w, cache.Finalize(entry, r, header), status, log)
}

// lookup returns the cached entry, or nil on a miss or store failure.
func (m *Middleware) lookup(ctx context.Context, key string, log zerolog.Logger) *cache.CacheEntry {
	entry, err := m.store.Get(ctx, key)
	if err != nil {
		if !cache.IsMiss(err) {
			log.Warn().Err(err).Msg("Cache get error, treating as miss")
		}
		return nil
	}
	return entry
}

// invalidate forgets an existing entry and reports whether one was removed.
func (m *Middleware) invalidate(ctx context.Context, key string, log zerolog.Logger) bool {
	exists, err := m.store.Has(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("Cache has error, skipping invalidation")
		return false
	}
	if !exists {
		return false
	}
	if err := m.store.Forget(ctx, key); err != nil {
		log.Warn().Err(err).Msg("Cache forget error")
		return false
	}
	cache.CacheInvalidations.Inc()
	log.Debug().Msg("Fresh response requested, cache entry invalidated")
	return true
}

// readOrWrite returns the stored entry if one exists, otherwise stores the
// recorded body. ok is false when the store failed and the recorded response
// should pass through untouched.
func (m *Middleware) readOrWrite(ctx context.Context, key string, ttl int, rec *recorder, log zerolog.Logger) (*cache.CacheEntry, bool) {
	existing, err := m.store.Get(ctx, key)
	if err == nil {
		log.Debug().Msg("Entry already stored, serving stored body")
		return existing, true
	}
	if !cache.IsMiss(err) {
		log.Warn().Err(err).Msg("Cache get error, response not stored")
		return nil, false
	}

	entry := cache.NewEntry(append([]byte(nil), rec.Bytes()...))
	entry.ContentType = rec.Header().Get("Content-Type")

	if err := m.store.Put(ctx, key, entry, ttl); err != nil {
		log.Warn().Err(err).Msg("Failed to cache response")
		return nil, false
	}

	cache.CacheStores.Inc()
	log.Debug().Int("ttl_minutes", ttl).Int("bytes", len(entry.Body)).Msg("Cached response")
	return entry, true
}

func (m *Middleware) write(w http.ResponseWriter, result *cache.Result, status string, log zerolog.Logger) {
	result.Header.Set(HeaderCacheStatus, status)
	if _, err := result.Write(w); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Sternrassler/route-cache/pkg/middleware"
	"github.com/Sternrassler/route-cache/pkg/route"
	"github.com/go-chi/chi/v5"
)

// registerRoutes declares the demo routes. Each response embeds the render
// time so cached and regenerated bodies can be told apart.
func registerRoutes(r *route.Router, mw *middleware.Middleware) {
	// Always cached, for one minute.
	r.Get("/time", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"rendered_at": time.Now().UTC().Format(time.RFC3339Nano)})
	}, route.Name("time"), route.CacheFor(1))

	// Cached with the configured life, one entry per id and query.
	show := r.Get("/articles/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{
			"id":          chi.URLParam(req, "id"),
			"page":        req.URL.Query().Get("page"),
			"rendered_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}, route.Name("articles.show"), route.Cache())

	// Follows the global default.
	r.Get("/search", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{
			"q":           req.URL.Query()["q"],
			"rendered_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Never cached.
	r.Get("/now", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"rendered_at": time.Now().UTC().Format(time.RFC3339Nano)})
	}, route.NoCache())

	// Drops the cached article for the given id and query.
	r.Post("/articles/{id}/purge", func(w http.ResponseWriter, req *http.Request) {
		params := map[string]string{"id": chi.URLParam(req, "id")}
		if err := mw.Invalidate(req.Context(), show, params, req.URL.Query()); err != nil {
			http.Error(w, "purge failed", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sternrassler/route-cache/internal/config"
	"github.com/Sternrassler/route-cache/pkg/middleware"
	"github.com/Sternrassler/route-cache/pkg/policy"
	"github.com/Sternrassler/route-cache/pkg/store"
	"github.com/rs/zerolog"
)

func testServer(t *testing.T, cache policy.Config) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Cache = cache
	srv := httptest.NewServer(newServer(cfg, store.NewMemory(), zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t, policy.CacheAll())

	get(t, srv.URL+"/articles/1")

	resp, body := get(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "route_cache_misses_total") {
		t.Error("Expected route_cache_misses_total in metrics output")
	}
}

func TestCachedRoutes(t *testing.T) {
	srv := testServer(t, policy.PerRoute())

	tests := []struct {
		path   string
		cached bool
	}{
		{"/time", true},
		{"/articles/7?page=2", true},
		{"/search?q=go", false},
		{"/now", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			first, body1 := get(t, srv.URL+tt.path)
			second, body2 := get(t, srv.URL+tt.path)

			if first.StatusCode != http.StatusOK || second.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, %d", first.StatusCode, second.StatusCode)
			}

			wantSecond := ""
			if tt.cached {
				wantSecond = middleware.StatusHit
				if body1 != body2 {
					t.Errorf("cached bodies differ: %s vs %s", body1, body2)
				}
				if second.Header.Get("Cache-Control") != "public" {
					t.Errorf("Cache-Control = %q, want public", second.Header.Get("Cache-Control"))
				}
			}
			if got := second.Header.Get(middleware.HeaderCacheStatus); got != wantSecond {
				t.Errorf("%s = %q, want %q", middleware.HeaderCacheStatus, got, wantSecond)
			}
		})
	}
}

func TestPurgeRoute(t *testing.T) {
	srv := testServer(t, policy.CacheAll())

	get(t, srv.URL+"/articles/3")
	if resp, _ := get(t, srv.URL+"/articles/3"); resp.Header.Get(middleware.HeaderCacheStatus) != middleware.StatusHit {
		t.Fatal("second request was not served from cache")
	}

	resp, err := http.Post(srv.URL+"/articles/3/purge", "text/plain", nil)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("purge status = %d, want 204", resp.StatusCode)
	}

	if resp, _ := get(t, srv.URL+"/articles/3"); resp.Header.Get(middleware.HeaderCacheStatus) != middleware.StatusMiss {
		t.Errorf("%s after purge = %q, want MISS", middleware.HeaderCacheStatus, resp.Header.Get(middleware.HeaderCacheStatus))
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     func() config.StoreConfig
		wantErr bool
	}{
		{"memory", func() config.StoreConfig {
			var c config.StoreConfig
			c.Backend = store.BackendMemory
			return c
		}, false},
		{"sqlite", func() config.StoreConfig {
			var c config.StoreConfig
			c.Backend = store.BackendSQLite
			c.SQLite.Path = filepath.Join(t.TempDir(), "cache.db")
			return c
		}, false},
		{"leveldb in memory", func() config.StoreConfig {
			var c config.StoreConfig
			c.Backend = store.BackendLevelDB
			return c
		}, false},
		{"leveldb on disk", func() config.StoreConfig {
			var c config.StoreConfig
			c.Backend = store.BackendLevelDB
			c.LevelDB.Path = filepath.Join(t.TempDir(), "leveldb")
			return c
		}, false},
		{"redis bad url", func() config.StoreConfig {
			var c config.StoreConfig
			c.Backend = store.BackendRedis
			c.Redis.URL = "redis://localhost:6379/notanumber"
			return c
		}, true},
		{"unknown", func() config.StoreConfig {
			var c config.StoreConfig
			c.Backend = "memcached"
			return c
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, closeStore, err := openStore(ctx, tt.cfg())
			if tt.wantErr {
				if err == nil {
					t.Error("openStore() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("openStore() error = %v", err)
			}
			defer closeStore()

			has, err := s.Has(ctx, "k")
			if err != nil || has {
				t.Errorf("Has() = %v, %v on fresh store", has, err)
			}
		})
	}
}

func TestRedisOptions(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		db       int
		wantAddr string
		wantDB   int
	}{
		{"plain address", "localhost:6379", 3, "localhost:6379", 3},
		{"url database", "redis://cache:6380/2", 0, "cache:6380", 2},
		{"configured db overrides url", "redis://cache:6380/2", 5, "cache:6380", 5},
		{"configured db without url path", "redis://cache:6380", 4, "cache:6380", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := redisOptions(tt.url, tt.db)
			if err != nil {
				t.Fatalf("redisOptions() error = %v", err)
			}
			if opts.Addr != tt.wantAddr || opts.DB != tt.wantDB {
				t.Errorf("opts = %s db %d, want %s db %d", opts.Addr, opts.DB, tt.wantAddr, tt.wantDB)
			}
		})
	}
}

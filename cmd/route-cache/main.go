package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/route-cache/internal/config"
	"github.com/Sternrassler/route-cache/pkg/cache"
	"github.com/Sternrassler/route-cache/pkg/logging"
	"github.com/Sternrassler/route-cache/pkg/metrics"
	"github.com/Sternrassler/route-cache/pkg/middleware"
	"github.com/Sternrassler/route-cache/pkg/route"
	"github.com/Sternrassler/route-cache/pkg/store"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", getEnv("ROUTE_CACHE_CONFIG", ""), "path to route-cache.yaml")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := cfg.Log
	logCfg.Output = os.Stderr
	logging.Setup(logCfg)
	logger := logging.NewLogger("server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.Store.Backend).Msg("Failed to open cache store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close cache store")
		}
	}()
	logger.Info().
		Str("store", cfg.Store.Backend).
		Bool("enabled", cfg.Cache.Enabled).
		Bool("global", cfg.Cache.Global).
		Int("life_minutes", cfg.Cache.Life).
		Msg("Cache store ready")

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("Failed to listen")
	}

	srv := &http.Server{
		Handler:           newServer(cfg, s, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Starting route cache server")
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Server failed")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Shutdown())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Graceful shutdown failed")
	}
	logger.Info().Msg("Server stopped")
}

// openStore creates the configured backend. The returned close function
// releases its resources.
func openStore(ctx context.Context, cfg config.StoreConfig) (cache.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case store.BackendMemory:
		return store.NewMemory(), noop, nil

	case store.BackendRedis:
		opts, err := redisOptions(cfg.Redis.URL, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(opts)
		r := store.NewRedis(client)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := r.Ping(pingCtx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		return r, client.Close, nil

	case store.BackendSQLite:
		s, err := store.NewSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case store.BackendLevelDB:
		var (
			l   *store.LevelDB
			err error
		)
		if cfg.LevelDB.Path == "" {
			l, err = store.NewLevelDBMemory()
		} else {
			l, err = store.NewLevelDB(cfg.LevelDB.Path)
		}
		if err != nil {
			return nil, nil, err
		}
		return l, l.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// redisOptions accepts both redis:// URLs and plain host:port addresses.
// A non-zero db overrides the database selected by the URL path.
func redisOptions(url string, db int) (*redis.Options, error) {
	if strings.Contains(url, "://") {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if db != 0 {
			opts.DB = db
		}
		return opts, nil
	}
	return &redis.Options{Addr: url, DB: db}, nil
}

// newServer builds the HTTP handler: operational endpoints plus the demo
// routes behind the route cache.
func newServer(cfg config.Config, s cache.Store, logger zerolog.Logger) http.Handler {
	mux := chi.NewRouter()
	mux.Use(chimiddleware.Recoverer)
	mux.Use(logging.AccessLog(logger))

	mux.Get("/health", healthHandler)
	mux.Handle("/metrics", metrics.Handler())

	mw := middleware.New(cfg.Cache, s)
	registerRoutes(route.NewRouter(mux, mw), mw)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

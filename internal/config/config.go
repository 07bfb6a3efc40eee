// Package config loads the route cache server configuration from an optional
// YAML file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/route-cache/pkg/logging"
	"github.com/Sternrassler/route-cache/pkg/policy"
	"github.com/Sternrassler/route-cache/pkg/store"
	"gopkg.in/yaml.v3"
)

// Presets select one of the two resolver configurations.
const (
	PresetPerRoute = "per-route"
	PresetCacheAll = "cache-all"
)

// Config is the complete server configuration.
type Config struct {
	// Preset, when set, overrides cache.enabled and cache.global.
	Preset string `yaml:"preset"`

	Cache  policy.Config  `yaml:"cache"`
	Store  StoreConfig    `yaml:"store"`
	Server ServerConfig   `yaml:"server"`
	Log    logging.Config `yaml:"log"`
}

// StoreConfig selects and configures the cache store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`

	Redis struct {
		// URL is either host:port or a redis:// URL.
		URL string `yaml:"url"`
		// DB, when non-zero, overrides the database in a redis:// URL.
		DB int `yaml:"db"`
	} `yaml:"redis"`

	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`

	LevelDB struct {
		// Path is the database directory. Empty keeps the data in memory.
		Path string `yaml:"path"`
	} `yaml:"leveldb"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int    `yaml:"port"`
	ShutdownTimeout string `yaml:"shutdownTimeout"`

	// compiled
	shutdown time.Duration
}

// Shutdown returns the parsed graceful shutdown timeout.
func (s ServerConfig) Shutdown() time.Duration {
	return s.shutdown
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := Config{
		Cache: policy.DefaultConfig(),
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: "10s",
		},
		Log: logging.Config{
			Level: logging.LevelInfo,
		},
	}
	cfg.Store.Backend = store.BackendMemory
	cfg.Store.Redis.URL = "localhost:6379"
	cfg.Store.SQLite.Path = "route-cache.db"
	return cfg
}

// Load reads the YAML file at path (skipped when path is empty), applies the
// preset and environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.applyPreset(); err != nil {
		return Config{}, err
	}
	if err := cfg.compile(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyPreset() error {
	switch c.Preset {
	case "":
		return nil
	case PresetPerRoute:
		c.Cache.Enabled, c.Cache.Global = true, false
	case PresetCacheAll:
		c.Cache.Enabled, c.Cache.Global = true, true
	default:
		return fmt.Errorf("preset: unknown value %q (want %s or %s)", c.Preset, PresetPerRoute, PresetCacheAll)
	}
	return nil
}

func (c *Config) compile() error {
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache.life: %w", err)
	}

	switch c.Store.Backend {
	case store.BackendMemory, store.BackendRedis, store.BackendLevelDB:
	case store.BackendSQLite:
		if c.Store.SQLite.Path == "" {
			return errors.New("store.sqlite.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}
	if c.Store.Backend == store.BackendRedis && c.Store.Redis.URL == "" {
		return errors.New("store.redis.url is required for the redis backend")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: out of range (got %d)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout != "" {
		d, err := time.ParseDuration(c.Server.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("server.shutdownTimeout: %w", err)
		}
		c.Server.shutdown = d
	}
	if c.Server.shutdown <= 0 {
		c.Server.shutdown = 10 * time.Second
	}

	if err := logging.ValidateLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// applyEnv overrides file values with ROUTE_CACHE_*, STORE, REDIS_URL, PORT
// and LOG_LEVEL.
func applyEnv(cfg *Config) error {
	cfg.Preset = getEnv("ROUTE_CACHE_PRESET", cfg.Preset)
	cfg.Store.Backend = strings.ToLower(getEnv("STORE", cfg.Store.Backend))
	cfg.Store.Redis.URL = getEnv("REDIS_URL", cfg.Store.Redis.URL)
	cfg.Store.SQLite.Path = getEnv("SQLITE_PATH", cfg.Store.SQLite.Path)
	cfg.Store.LevelDB.Path = getEnv("LEVELDB_PATH", cfg.Store.LevelDB.Path)
	cfg.Log.Level = logging.LogLevel(getEnv("LOG_LEVEL", string(cfg.Log.Level)))

	var err error
	if cfg.Cache.Enabled, err = getEnvBool("ROUTE_CACHE_ENABLED", cfg.Cache.Enabled); err != nil {
		return err
	}
	if cfg.Cache.Global, err = getEnvBool("ROUTE_CACHE_GLOBAL", cfg.Cache.Global); err != nil {
		return err
	}
	if cfg.Cache.Life, err = getEnvInt("ROUTE_CACHE_LIFE", cfg.Cache.Life); err != nil {
		return err
	}
	if cfg.Server.Port, err = getEnvInt("PORT", cfg.Server.Port); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/route-cache/pkg/logging"
	"github.com/Sternrassler/route-cache/pkg/policy"
	"github.com/Sternrassler/route-cache/pkg/store"
)

var envKeys = []string{
	"ROUTE_CACHE_PRESET", "ROUTE_CACHE_ENABLED", "ROUTE_CACHE_GLOBAL", "ROUTE_CACHE_LIFE",
	"STORE", "REDIS_URL", "SQLITE_PATH", "LEVELDB_PATH", "PORT", "LOG_LEVEL",
}

// clearEnv blanks every variable Load reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "route-cache.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Cache != policy.DefaultConfig() {
		t.Errorf("Cache = %+v, want %+v", cfg.Cache, policy.DefaultConfig())
	}
	if cfg.Store.Backend != store.BackendMemory {
		t.Errorf("Store.Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Shutdown() != 10*time.Second {
		t.Errorf("Server.Shutdown() = %v, want 10s", cfg.Server.Shutdown())
	}
	if cfg.Log.Level != logging.LevelInfo {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
cache:
  enabled: true
  global: true
  life: 60
store:
  backend: redis
  redis:
    url: redis://cache:6379/2
server:
  port: 9090
  shutdownTimeout: 3s
log:
  level: debug
  pretty: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := policy.Config{Enabled: true, Global: true, Life: 60}
	if cfg.Cache != want {
		t.Errorf("Cache = %+v, want %+v", cfg.Cache, want)
	}
	if cfg.Store.Backend != store.BackendRedis || cfg.Store.Redis.URL != "redis://cache:6379/2" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Shutdown() != 3*time.Second {
		t.Errorf("Server = %+v (shutdown %v)", cfg.Server, cfg.Server.Shutdown())
	}
	if cfg.Log.Level != logging.LevelDebug || !cfg.Log.Pretty {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoad_PartialCacheKeepsDefaultLife(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, "cache:\n  enabled: true\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cache.Life != policy.DefaultLife {
		t.Errorf("Cache.Life = %d, want %d", cfg.Cache.Life, policy.DefaultLife)
	}
}

func TestLoad_Presets(t *testing.T) {
	tests := []struct {
		preset string
		want   policy.Config
	}{
		{PresetPerRoute, policy.PerRoute()},
		{PresetCacheAll, policy.CacheAll()},
	}

	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			clearEnv(t)

			cfg, err := Load(writeConfig(t, "preset: "+tt.preset+"\ncache:\n  enabled: false\n  global: false\n"))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Cache != tt.want {
				t.Errorf("Cache = %+v, want %+v", cfg.Cache, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROUTE_CACHE_ENABLED", "true")
	t.Setenv("ROUTE_CACHE_GLOBAL", "1")
	t.Setenv("ROUTE_CACHE_LIFE", "15")
	t.Setenv("STORE", "LevelDB")
	t.Setenv("LEVELDB_PATH", "/var/lib/route-cache")
	t.Setenv("PORT", "3000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "cache:\n  life: 120\nserver:\n  port: 9000\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := policy.Config{Enabled: true, Global: true, Life: 15}
	if cfg.Cache != want {
		t.Errorf("Cache = %+v, want %+v", cfg.Cache, want)
	}
	if cfg.Store.Backend != store.BackendLevelDB || cfg.Store.LevelDB.Path != "/var/lib/route-cache" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Log.Level != logging.LevelWarn {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{"malformed yaml", "cache: [", nil, "parse config"},
		{"zero life", "cache:\n  life: 0\n", nil, "cache.life"},
		{"unknown preset", "preset: sometimes\n", nil, "preset"},
		{"unknown backend", "store:\n  backend: memcached\n", nil, "store.backend"},
		{"empty sqlite path", "store:\n  backend: sqlite\n  sqlite:\n    path: \"\"\n", nil, "store.sqlite.path"},
		{"bad port", "server:\n  port: 70000\n", nil, "server.port"},
		{"bad shutdown timeout", "server:\n  shutdownTimeout: soon\n", nil, "server.shutdownTimeout"},
		{"bad log level", "log:\n  level: verbose\n", nil, "log.level"},
		{"bad env bool", "", map[string]string{"ROUTE_CACHE_ENABLED": "maybe"}, "ROUTE_CACHE_ENABLED"},
		{"bad env int", "", map[string]string{"ROUTE_CACHE_LIFE": "week"}, "ROUTE_CACHE_LIFE"},
		{"bad env port", "", map[string]string{"PORT": "http"}, "PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.yaml != "" {
				path = writeConfig(t, tt.yaml)
			}

			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file should fail")
	}
}

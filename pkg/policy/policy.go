// Package policy decides whether a route response may be cached and for how
// long.
//
// The decision is layered:
//
//  1. only GET requests are eligible
//  2. Config.Enabled is a hard kill switch
//  3. a route's keyed "cache" directive (bool or TTL in minutes), else the
//     keyless "cache" / "no-cache" tokens
//  4. routes without a directive fall back to Config.Global
//
// Keyed directives take precedence over keyless tokens when both are present.
package policy

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sternrassler/route-cache/pkg/route"
)

// DefaultLife is the default TTL in minutes (one week).
const DefaultLife = 7 * 24 * 60

// Config is the process-wide caching configuration. It is built once at
// startup and never mutated while serving.
type Config struct {
	// Enabled is the master switch. When false nothing is cached.
	Enabled bool `yaml:"enabled"`

	// Global is the default for routes without a cache directive.
	Global bool `yaml:"global"`

	// Life is the default TTL in minutes.
	Life int `yaml:"life"`
}

// DefaultConfig returns the defaults: disabled, opt-in, one week TTL.
func DefaultConfig() Config {
	return Config{
		Enabled: false,
		Global:  false,
		Life:    DefaultLife,
	}
}

// PerRoute returns an enabled configuration where only routes carrying a
// cache directive are cached.
func PerRoute() Config {
	return Config{Enabled: true, Global: false, Life: DefaultLife}
}

// CacheAll returns an enabled configuration caching every GET route unless
// the route opts out.
func CacheAll() Config {
	return Config{Enabled: true, Global: true, Life: DefaultLife}
}

// Validate checks the configuration for values the resolver cannot use.
func (c Config) Validate() error {
	if c.Life <= 0 {
		return fmt.Errorf("life must be > 0 minutes (got %d)", c.Life)
	}
	return nil
}

// State is the resolved state of a route's cache directive.
type State int

const (
	// Unset defers to Config.Global.
	Unset State = iota
	// Disabled never caches.
	Disabled
	// Enabled caches with Config.Life.
	Enabled
	// EnabledWithTTL caches with Directive.TTL.
	EnabledWithTTL
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Enabled:
		return "enabled"
	case EnabledWithTTL:
		return "enabled_with_ttl"
	default:
		return "unset"
	}
}

// Directive is a route's resolved caching instruction.
type Directive struct {
	State State
	// TTL in minutes, only meaningful for EnabledWithTTL.
	TTL int
}

// Resolve derives the Directive from a route's directives. Unknown or
// malformed values resolve to Unset.
func Resolve(d route.Directives) Directive {
	// A nil keyed value counts as absent.
	if v, ok := d.Lookup(route.KeyCache); ok && v != nil {
		return fromValue(v)
	}
	if d.HasToken(route.TokenCache) {
		return Directive{State: Enabled}
	}
	if d.HasToken(route.TokenNoCache) {
		return Directive{State: Disabled}
	}
	return Directive{State: Unset}
}

func fromValue(v any) Directive {
	switch val := v.(type) {
	case bool:
		if val {
			return Directive{State: Enabled}
		}
		return Directive{State: Disabled}
	case int:
		return withTTL(int64(val))
	case int8:
		return withTTL(int64(val))
	case int16:
		return withTTL(int64(val))
	case int32:
		return withTTL(int64(val))
	case int64:
		return withTTL(val)
	case uint:
		return withTTL(int64(val))
	case uint8:
		return withTTL(int64(val))
	case uint16:
		return withTTL(int64(val))
	case uint32:
		return withTTL(int64(val))
	case uint64:
		if val > math.MaxInt32 {
			return Directive{State: Unset}
		}
		return withTTL(int64(val))
	case string:
		// Values read from config files arrive as strings.
		s := strings.TrimSpace(val)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return withTTL(n)
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return fromValue(b)
		}
	}
	return Directive{State: Unset}
}

func withTTL(n int64) Directive {
	return Directive{State: EnabledWithTTL, TTL: int(n)}
}

// ShouldCache reports whether a request with the given method may consult or
// populate the cache for route d.
func ShouldCache(cfg Config, d *route.Descriptor, method string) bool {
	if method != http.MethodGet {
		return false
	}
	if d == nil || !d.AllowsGet() {
		return false
	}
	if !cfg.Enabled {
		return false
	}

	switch Resolve(d.Directives).State {
	case Disabled:
		return false
	case Enabled, EnabledWithTTL:
		return true
	default:
		return cfg.Global
	}
}

// ResolveTTL returns the TTL in minutes for route d.
func ResolveTTL(cfg Config, d *route.Descriptor) int {
	if d != nil {
		if dir := Resolve(d.Directives); dir.State == EnabledWithTTL {
			return dir.TTL
		}
	}
	return cfg.Life
}

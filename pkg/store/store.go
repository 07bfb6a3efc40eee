// Package store provides cache.Store backends: in-process memory, Redis,
// SQLite and LevelDB.
package store

import (
	"fmt"
	"time"

	"github.com/Sternrassler/route-cache/pkg/cache"
)

// Backend names, also used as the "store" metric label.
const (
	BackendMemory  = "memory"
	BackendRedis   = "redis"
	BackendSQLite  = "sqlite"
	BackendLevelDB = "leveldb"
)

// ttlDuration converts a TTL in minutes to a duration. ok is false for
// non-positive TTLs, which are never written.
func ttlDuration(ttlMinutes int) (time.Duration, bool) {
	if ttlMinutes <= 0 {
		return 0, false
	}
	return time.Duration(ttlMinutes) * time.Minute, true
}

// fail records a failed operation and wraps err.
func fail(op, key string, err error) error {
	cache.CacheErrors.WithLabelValues(op).Inc()
	return &cache.StoreError{Op: op, Key: key, Err: err}
}

// validateEntry rejects nil entries before any backend work.
func validateEntry(entry *cache.CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	return nil
}

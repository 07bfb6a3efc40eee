package cache

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the key-value backend the cache layer runs on.
//
// Implementations must be safe for concurrent use and provide per-key
// atomicity for each operation. Expiry is the store's job: entries written
// with a TTL must disappear on their own once it elapses.
type Store interface {
	// Has reports whether an unexpired entry exists for key.
	Has(ctx context.Context, key string) (bool, error)

	// Get returns the entry for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Put stores entry under key for ttlMinutes. A non-positive TTL stores nothing.
	Put(ctx context.Context, key string, entry *CacheEntry, ttlMinutes int) error

	// Forget removes the entry for key. Forgetting a missing key is not an error.
	Forget(ctx context.Context, key string) error
}

// StoreError describes a failed store operation.
type StoreError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("cache store %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsMiss reports whether err is a cache miss rather than a store failure.
func IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/route-cache/pkg/cache"

	_ "github.com/glebarez/go-sqlite"
)

// SQLite stores entries in a SQLite database. Expired rows are treated as
// missing and deleted when read.
type SQLite struct {
	db         *sql.DB
	writeMutex sync.Mutex
	now        func() time.Time
}

// NewSQLite opens (or creates) the database at dsn. Use
// "file::memory:?cache=shared" for an in-memory database.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}

	stmts := []string{
		"CREATE TABLE IF NOT EXISTS route_cache (key TEXT PRIMARY KEY, expires INTEGER NOT NULL, entry BLOB NOT NULL)",
		"CREATE INDEX IF NOT EXISTS route_cache_expires_idx ON route_cache (expires)",
		"PRAGMA journal_mode=WAL",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Name returns the backend name.
func (s *SQLite) Name() string { return BackendSQLite }

// Has implements cache.Store.
func (s *SQLite) Has(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM route_cache WHERE key = ? AND expires > ?", key, s.now().UnixNano(),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fail("has", key, err)
	}
	return true, nil
}

// Get implements cache.Store.
func (s *SQLite) Get(ctx context.Context, key string) (*cache.CacheEntry, error) {
	var expires int64
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT expires, entry FROM route_cache WHERE key = ?", key,
	).Scan(&expires, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrCacheMiss
	}
	if err != nil {
		return nil, fail("get", key, err)
	}

	if s.now().UnixNano() >= expires {
		s.deleteExpired(ctx, key, expires)
		return nil, cache.ErrCacheMiss
	}

	entry, err := cache.UnmarshalEntry(data)
	if err != nil {
		return nil, fail("get", key, err)
	}
	return entry, nil
}

// Put implements cache.Store.
func (s *SQLite) Put(ctx context.Context, key string, entry *cache.CacheEntry, ttlMinutes int) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	ttl, ok := ttlDuration(ttlMinutes)
	if !ok {
		return nil
	}

	data, err := entry.Marshal()
	if err != nil {
		return fail("put", key, err)
	}

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO route_cache (key, expires, entry) VALUES (?, ?, ?)",
		key, s.now().Add(ttl).UnixNano(), data,
	)
	if err != nil {
		return fail("put", key, err)
	}

	cache.CacheWrittenBytes.WithLabelValues(BackendSQLite).Add(float64(len(data)))
	return nil
}

// Forget implements cache.Store.
func (s *SQLite) Forget(ctx context.Context, key string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM route_cache WHERE key = ?", key); err != nil {
		return fail("forget", key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// deleteExpired removes key if it still holds the expired row.
func (s *SQLite) deleteExpired(ctx context.Context, key string, expires int64) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, _ = s.db.ExecContext(ctx, "DELETE FROM route_cache WHERE key = ? AND expires = ?", key, expires)
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/route-cache/pkg/cache"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// levelRecord is the on-disk value: the entry plus its expiry.
type levelRecord struct {
	Expires time.Time         `json:"expires"`
	Entry   *cache.CacheEntry `json:"entry"`
}

// LevelDB stores entries in an embedded LevelDB database. Expired records
// are treated as missing and deleted when read.
type LevelDB struct {
	db  *leveldb.DB
	now func() time.Time
}

// NewLevelDB opens (or creates) a LevelDB database in dir.
func NewLevelDB(dir string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %q: %w", dir, err)
	}
	return &LevelDB{db: db, now: time.Now}, nil
}

// NewLevelDBMemory opens a LevelDB database backed by memory storage.
func NewLevelDBMemory() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb memory storage: %w", err)
	}
	return &LevelDB{db: db, now: time.Now}, nil
}

// Name returns the backend name.
func (l *LevelDB) Name() string { return BackendLevelDB }

func levelKey(key string) []byte {
	return []byte("e:" + key)
}

func (l *LevelDB) load(key string) (*levelRecord, error) {
	data, err := l.db.Get(levelKey(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, cache.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var rec levelRecord
	if err := json.Unmarshal(data, &rec); err != nil || rec.Entry == nil {
		return nil, fmt.Errorf("%w: undecodable record", cache.ErrInvalidEntry)
	}
	if !l.now().Before(rec.Expires) {
		_ = l.db.Delete(levelKey(key), nil)
		return nil, cache.ErrCacheMiss
	}
	return &rec, nil
}

// Has implements cache.Store.
func (l *LevelDB) Has(_ context.Context, key string) (bool, error) {
	_, err := l.load(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, cache.ErrCacheMiss):
		return false, nil
	default:
		return false, fail("has", key, err)
	}
}

// Get implements cache.Store.
func (l *LevelDB) Get(_ context.Context, key string) (*cache.CacheEntry, error) {
	rec, err := l.load(key)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, err
		}
		return nil, fail("get", key, err)
	}
	return rec.Entry, nil
}

// Put implements cache.Store.
func (l *LevelDB) Put(_ context.Context, key string, entry *cache.CacheEntry, ttlMinutes int) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	ttl, ok := ttlDuration(ttlMinutes)
	if !ok {
		return nil
	}

	data, err := json.Marshal(levelRecord{Expires: l.now().Add(ttl), Entry: entry})
	if err != nil {
		return fail("put", key, err)
	}
	if err := l.db.Put(levelKey(key), data, nil); err != nil {
		return fail("put", key, err)
	}

	cache.CacheWrittenBytes.WithLabelValues(BackendLevelDB).Add(float64(len(data)))
	return nil
}

// Forget implements cache.Store.
func (l *LevelDB) Forget(_ context.Context, key string) error {
	if err := l.db.Delete(levelKey(key), nil); err != nil {
		return fail("forget", key, err)
	}
	return nil
}

// Close closes the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

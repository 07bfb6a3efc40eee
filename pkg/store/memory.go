package store

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/route-cache/pkg/cache"
)

type memoryEntry struct {
	expires time.Time
	entry   cache.CacheEntry
}

// Memory is an in-process store. Expired entries are dropped lazily on access.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Name returns the backend name.
func (m *Memory) Name() string { return BackendMemory }

// Has implements cache.Store.
func (m *Memory) Has(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if m.now().After(e.expires) {
		m.evict(key, e.expires)
		return false, nil
	}
	return true, nil
}

// Get implements cache.Store.
func (m *Memory) Get(_ context.Context, key string) (*cache.CacheEntry, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	if m.now().After(e.expires) {
		m.evict(key, e.expires)
		return nil, cache.ErrCacheMiss
	}

	entry := e.entry
	entry.Body = append([]byte(nil), e.entry.Body...)
	return &entry, nil
}

// Put implements cache.Store.
func (m *Memory) Put(_ context.Context, key string, entry *cache.CacheEntry, ttlMinutes int) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	ttl, ok := ttlDuration(ttlMinutes)
	if !ok {
		return nil
	}

	stored := *entry
	stored.Body = append([]byte(nil), entry.Body...)

	m.mu.Lock()
	m.entries[key] = memoryEntry{expires: m.now().Add(ttl), entry: stored}
	m.mu.Unlock()

	cache.CacheWrittenBytes.WithLabelValues(BackendMemory).Add(float64(len(stored.Body)))
	return nil
}

// Forget implements cache.Store.
func (m *Memory) Forget(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// evict removes key if it still holds the expired entry observed by the caller.
func (m *Memory) evict(key string, expires time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok && e.expires.Equal(expires) {
		delete(m.entries, key)
	}
}

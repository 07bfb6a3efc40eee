package cache

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CacheEntry is a cached route response.
type CacheEntry struct {
	// StoredAt is when the response was first cached. It is served as Last-Modified.
	StoredAt time.Time `json:"stored_at"`

	// Body is the response body
	Body []byte `json:"body"`

	// ContentType is the handler's Content-Type, replayed on cache hits
	ContentType string `json:"content_type,omitempty"`
}

// NewEntry creates an entry stamped with the current time, truncated to the
// second resolution of HTTP dates.
func NewEntry(body []byte) *CacheEntry {
	return &CacheEntry{
		StoredAt: time.Now().UTC().Truncate(time.Second),
		Body:     body,
	}
}

// LastModified returns StoredAt formatted as an HTTP date.
func (e *CacheEntry) LastModified() string {
	return e.StoredAt.UTC().Format(http.TimeFormat)
}

// Age returns how long ago the entry was stored.
func (e *CacheEntry) Age() time.Duration {
	age := time.Since(e.StoredAt)
	if age < 0 {
		return 0
	}
	return age
}

// Marshal encodes the entry for a byte-oriented store.
func (e *CacheEntry) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	return data, nil
}

// UnmarshalEntry decodes an entry written by Marshal.
func UnmarshalEntry(data []byte) (*CacheEntry, error) {
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}

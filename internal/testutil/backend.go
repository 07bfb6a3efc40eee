// Package testutil provides testing utilities for the route cache.
package testutil

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// BackendResponse defines how a mock route handler answers.
type BackendResponse struct {
	StatusCode int
	Headers    map[string]string
	Delay      time.Duration

	// Location is sent for 3xx responses.
	Location string
}

// Backend is a configurable route handler that counts invocations.
// Every 200 body is unique ("<prefix>-<n>"), so tests can tell a cached
// response apart from a regenerated one.
type Backend struct {
	mu       sync.RWMutex
	prefix   string
	response BackendResponse

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
}

// NewBackend creates a backend that answers 200 with a JSON body.
func NewBackend(prefix string) *Backend {
	return &Backend{
		prefix:   prefix,
		response: NewOKResponse(),
	}
}

// SetResponse changes how subsequent requests are answered.
func (b *Backend) SetResponse(resp BackendResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.response = resp
}

// Reset clears all tracking counters.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.RequestCount = 0
	b.ConditionalCount = 0
	b.LastRequestHeader = nil
}

// GetRequestCount returns the number of times the handler ran.
func (b *Backend) GetRequestCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.RequestCount
}

// GetConditionalCount returns how many handled requests carried If-Modified-Since.
func (b *Backend) GetConditionalCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ConditionalCount
}

// GetLastRequestHeader returns the headers of the last handled request.
func (b *Backend) GetLastRequestHeader() http.Header {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.LastRequestHeader
}

// ServeHTTP implements http.Handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.RequestCount++
	n := b.RequestCount
	b.LastRequestHeader = r.Header.Clone()
	if r.Header.Get("If-Modified-Since") != "" {
		b.ConditionalCount++
	}
	resp := b.response
	b.mu.Unlock()

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if resp.Location != "" {
		w.Header().Set("Location", resp.Location)
	}

	w.WriteHeader(resp.StatusCode)
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotModified {
		return
	}
	fmt.Fprintf(w, `{"body": "%s-%d"}`, b.prefix, n)
}

// Body returns the body the n-th invocation produces.
func (b *Backend) Body(n int) string {
	return fmt.Sprintf(`{"body": "%s-%d"}`, b.prefix, n)
}

// NewOKResponse creates a standard 200 OK JSON response.
func NewOKResponse() BackendResponse {
	return BackendResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRedirectResponse creates a 302 Found response.
func NewRedirectResponse(location string) BackendResponse {
	return BackendResponse{
		StatusCode: http.StatusFound,
		Location:   location,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() BackendResponse {
	return BackendResponse{
		StatusCode: http.StatusInternalServerError,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

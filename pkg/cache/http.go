package cache

import (
	"net/http"
	"strconv"
	"strings"
)

// Result is a finalized response ready to be written to the client.
type Result struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Write sends the result to w. Headers already set on w are kept unless the
// result overrides them.
func (r *Result) Write(w http.ResponseWriter) (int, error) {
	dst := w.Header()
	for key, values := range r.Header {
		dst[key] = append([]string(nil), values...)
	}
	if r.StatusCode == http.StatusNotModified {
		dst.Del("Content-Length")
		w.WriteHeader(r.StatusCode)
		return 0, nil
	}
	dst.Set("Content-Length", strconv.Itoa(len(r.Body)))
	w.WriteHeader(r.StatusCode)
	return w.Write(r.Body)
}

// Finalize builds the response for a cached entry.
//
// The response carries Last-Modified (entry.StoredAt) and Cache-Control:
// public. When the request's If-Modified-Since equals that Last-Modified
// value exactly, the result is a 304 with an empty body; otherwise it is a
// 200 with the entry body. header holds headers produced by the handler
// (e.g. Content-Type) and may be nil.
func Finalize(entry *CacheEntry, req *http.Request, header http.Header) *Result {
	out := make(http.Header, len(header)+2)
	for key, values := range header {
		out[key] = append([]string(nil), values...)
	}

	// The stored body's media type wins over whatever the handler set.
	if entry.ContentType != "" {
		out.Set("Content-Type", entry.ContentType)
	}

	lastModified := entry.LastModified()
	out.Set("Last-Modified", lastModified)
	out.Set("Cache-Control", "public")

	if NotModified(req, lastModified) {
		ConditionalResponses.Inc()
		out.Del("Content-Type")
		out.Del("Content-Length")
		return &Result{
			StatusCode: http.StatusNotModified,
			Header:     out,
		}
	}

	return &Result{
		StatusCode: http.StatusOK,
		Body:       entry.Body,
		Header:     out,
	}
}

// NotModified reports whether the request's If-Modified-Since validator is
// exactly lastModified. An older or newer validator does not match.
func NotModified(req *http.Request, lastModified string) bool {
	if req == nil || lastModified == "" {
		return false
	}
	ims := req.Header.Get("If-Modified-Since")
	return ims != "" && ims == lastModified
}

// FreshnessRequested reports whether the client asked to bypass cached
// content (Cache-Control: no-cache, or Pragma: no-cache).
func FreshnessRequested(req *http.Request) bool {
	if req == nil {
		return false
	}
	if hasDirective(req.Header.Values("Cache-Control"), "no-cache") {
		return true
	}
	return hasDirective(req.Header.Values("Pragma"), "no-cache")
}

func hasDirective(values []string, directive string) bool {
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			name := strings.TrimSpace(part)
			if i := strings.IndexByte(name, '='); i >= 0 {
				name = strings.TrimSpace(name[:i])
			}
			if strings.EqualFold(name, directive) {
				return true
			}
		}
	}
	return false
}

// AddConditionalHeaders sets If-Modified-Since on req from the entry.
func AddConditionalHeaders(req *http.Request, entry *CacheEntry) {
	if entry == nil || req == nil || entry.StoredAt.IsZero() {
		return
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	req.Header.Set("If-Modified-Since", entry.LastModified())
}

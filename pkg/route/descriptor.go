// Package route describes cacheable routes: their identity, the HTTP method
// they answer and the directives attached at declaration time.
package route

import (
	"context"
	"net/http"
	"strings"
)

// Directive keys and keyless tokens recognized by the cache layer.
const (
	KeyCache     = "cache"
	TokenCache   = "cache"
	TokenNoCache = "no-cache"
)

// Directives holds the metadata attached to a route declaration.
type Directives struct {
	// Values are keyed directives, e.g. {"cache": 60} or {"cache": false}.
	Values map[string]any

	// Tokens are keyless directives, e.g. "cache" or "no-cache".
	Tokens []string
}

// Lookup returns the keyed directive stored under key.
func (d Directives) Lookup(key string) (any, bool) {
	if d.Values == nil {
		return nil, false
	}
	v, ok := d.Values[key]
	return v, ok
}

// HasToken reports whether the keyless token is present.
func (d Directives) HasToken(token string) bool {
	for _, t := range d.Tokens {
		if t == token {
			return true
		}
	}
	return false
}

// Descriptor identifies a route.
type Descriptor struct {
	// Method is the HTTP method the route is registered for.
	Method string

	// Name is the optional stable route name.
	Name string

	// URI is the route template, e.g. "/articles/{id}".
	URI string

	Directives Directives
}

// Identity returns the token used for cache key derivation: the route name
// when set, else the normalized URI template. A named route keeps its
// identity when its URI template changes.
func (d *Descriptor) Identity() string {
	if d.Name != "" {
		return d.Name
	}
	return NormalizeURI(d.URI)
}

// AllowsGet reports whether the route is declared for GET.
func (d *Descriptor) AllowsGet() bool {
	return d.Method == "" || strings.EqualFold(d.Method, http.MethodGet)
}

// NormalizeURI trims surrounding slashes, collapses repeated slashes and
// strips chi regexp constraints from placeholders ("{id:[0-9]+}" -> "{id}").
func NormalizeURI(uri string) string {
	segments := strings.Split(uri, "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if i := strings.Index(seg, ":"); i > 0 {
				seg = seg[:i] + "}"
			}
		}
		out = append(out, seg)
	}
	return strings.Join(out, "/")
}

type ctxKey struct{}

// WithDescriptor returns a copy of ctx carrying the matched route descriptor.
func WithDescriptor(ctx context.Context, d *Descriptor) context.Context {
	return context.WithValue(ctx, ctxKey{}, d)
}

// FromContext returns the descriptor stored by WithDescriptor.
func FromContext(ctx context.Context) (*Descriptor, bool) {
	d, ok := ctx.Value(ctxKey{}).(*Descriptor)
	return d, ok && d != nil
}

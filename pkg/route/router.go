package route

import (
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Binder wraps a route handler with behavior bound to the route descriptor.
// The cache middleware implements it.
type Binder interface {
	Wrap(d *Descriptor, next http.Handler) http.Handler
}

// Option configures a descriptor at registration time.
type Option func(*Descriptor)

// Name sets the stable route name.
func Name(name string) Option {
	return func(d *Descriptor) { d.Name = name }
}

// Cache attaches the keyless "cache" token.
func Cache() Option {
	return Token(TokenCache)
}

// NoCache attaches the keyless "no-cache" token.
func NoCache() Option {
	return Token(TokenNoCache)
}

// CacheFor sets the keyed cache directive to an explicit TTL in minutes.
func CacheFor(minutes int) Option {
	return Set(KeyCache, minutes)
}

// Token attaches an arbitrary keyless directive.
func Token(token string) Option {
	return func(d *Descriptor) {
		d.Directives.Tokens = append(d.Directives.Tokens, token)
	}
}

// Set attaches a keyed directive.
func Set(key string, value any) Option {
	return func(d *Descriptor) {
		if d.Directives.Values == nil {
			d.Directives.Values = make(map[string]any)
		}
		d.Directives.Values[key] = value
	}
}

// Router registers routes on a chi router and binds each handler to its
// descriptor. The descriptor is captured once, at registration.
type Router struct {
	mux    chi.Router
	binder Binder

	mu     sync.RWMutex
	routes []*Descriptor
}

// NewRouter creates a Router on top of mux. A nil binder registers handlers
// unwrapped (descriptors are still placed on the request context).
func NewRouter(mux chi.Router, binder Binder) *Router {
	if mux == nil {
		mux = chi.NewRouter()
	}
	return &Router{mux: mux, binder: binder}
}

// Handle registers h for method and pattern.
func (r *Router) Handle(method, pattern string, h http.Handler, opts ...Option) *Descriptor {
	d := &Descriptor{
		Method: strings.ToUpper(method),
		URI:    pattern,
	}
	for _, opt := range opts {
		opt(d)
	}

	var handler http.Handler = h
	if r.binder != nil {
		handler = r.binder.Wrap(d, h)
	}
	r.mux.Method(d.Method, pattern, withDescriptor(d, handler))

	r.mu.Lock()
	r.routes = append(r.routes, d)
	r.mu.Unlock()

	return d
}

// Get registers a GET route.
func (r *Router) Get(pattern string, h http.HandlerFunc, opts ...Option) *Descriptor {
	return r.Handle(http.MethodGet, pattern, h, opts...)
}

// Post registers a POST route.
func (r *Router) Post(pattern string, h http.HandlerFunc, opts ...Option) *Descriptor {
	return r.Handle(http.MethodPost, pattern, h, opts...)
}

// Routes returns the registered descriptors in registration order.
func (r *Router) Routes() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, len(r.routes))
	copy(out, r.routes)
	return out
}

// Lookup finds a registered descriptor by name.
func (r *Router) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.routes {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Mux returns the underlying chi router.
func (r *Router) Mux() chi.Router {
	return r.mux
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func withDescriptor(d *Descriptor, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		next.ServeHTTP(w, req.WithContext(WithDescriptor(req.Context(), d)))
	})
}

// PathParams returns the URL parameters chi resolved for the request.
func PathParams(r *http.Request) map[string]string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil
	}
	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if key == "" || i >= len(rctx.URLParams.Values) {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}
	return params
}

package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// KeyPrefix namespaces every key so the cache can share a store with
// unrelated users.
const KeyPrefix = "sternrassler.route-cache."

// CacheKey identifies a cached route response.
type CacheKey struct {
	// Route is the route identity token (route name, else normalized URI template)
	Route string

	// PathParams are the resolved path parameters (e.g., {"id": "42"})
	PathParams map[string]string

	// QueryParams are the query string parameters
	QueryParams url.Values
}

// String generates the deterministic store key.
// Format: sternrassler.route-cache.<32 hex digits of xxh3-128>
//
// Parameters are sorted by name, and repeated query values by value, before
// hashing, so their order in the URL does not matter. Any change of value
// yields a different key.
func (k CacheKey) String() string {
	var b strings.Builder

	writeField(&b, "route", k.Route)

	if len(k.PathParams) > 0 {
		pathKeys := make([]string, 0, len(k.PathParams))
		for key := range k.PathParams {
			pathKeys = append(pathKeys, key)
		}
		sort.Strings(pathKeys)

		for _, key := range pathKeys {
			writeField(&b, "p:"+key, k.PathParams[key])
		}
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			values := append([]string(nil), k.QueryParams[key]...)
			sort.Strings(values)
			for _, value := range values {
				writeField(&b, "q:"+key, value)
			}
		}
	}

	sum := xxh3.HashString128(b.String())
	return fmt.Sprintf("%s%016x%016x", KeyPrefix, sum.Hi, sum.Lo)
}

// writeField appends a length-prefixed name=value record, so values
// containing separators cannot collide with other parameter sets.
func writeField(b *strings.Builder, name, value string) {
	b.WriteString(strconv.Itoa(len(name)))
	b.WriteByte(':')
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(strconv.Itoa(len(value)))
	b.WriteByte(':')
	b.WriteString(value)
	b.WriteByte(';')
}

// DeriveKey is shorthand for CacheKey{...}.String().
func DeriveKey(routeIdentity string, pathParams map[string]string, queryParams url.Values) string {
	return CacheKey{
		Route:       routeIdentity,
		PathParams:  pathParams,
		QueryParams: queryParams,
	}.String()
}

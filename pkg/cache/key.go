package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Sternrassler/api2xlsx/pkg/auth"
)

// KeyPrefix namespaces every key this package writes.
const KeyPrefix = "api2xlsx"

// CacheKey identifies a cached response.
type CacheKey struct {
	// Endpoint is scheme://host/path of the request.
	Endpoint string

	// QueryParams are the request's query parameters, secrets removed.
	QueryParams url.Values

	// AuthScope is the credential fingerprint ("anon" for no auth).
	AuthScope string
}

// NewKey derives a cache key for a request to u made with creds.
func NewKey(u *url.URL, creds auth.Credentials) CacheKey {
	query := u.Query()
	if param := creds.SecretParam(); param != "" {
		query.Del(param)
	}

	endpoint := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	return CacheKey{
		Endpoint:    endpoint.String(),
		QueryParams: query,
		AuthScope:   creds.Fingerprint(),
	}
}

// String generates a deterministic cache key string.
// Format: api2xlsx:endpoint:query1=val1:query2=val2:auth=scope
//
// Example:
//
//	api2xlsx:https://api.test/items:page=2:auth=anon
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if k.Endpoint != "" {
		parts = append(parts, strings.TrimRight(k.Endpoint, "/"))
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
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(values, ",")))
		}
	}

	scope := k.AuthScope
	if scope == "" {
		scope = "anon"
	}
	parts = append(parts, "auth="+scope)

	return strings.Join(parts, ":")
}

package cache

import (
	"net/http"
	"time"
)

// CacheEntry is a cached API response body plus its validators.
type CacheEntry struct {
	// Data is the response body
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag,omitempty"`

	// Expires is when the entry becomes stale
	Expires time.Time `json:"expires"`

	// LastModified for conditional requests (If-Modified-Since)
	LastModified time.Time `json:"last_modified,omitempty"`

	// ContentType of the cached body
	ContentType string `json:"content_type,omitempty"`

	// CachedAt is when we stored this response
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, 0 if already expired.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// HasValidator reports whether the entry can be revalidated with a
// conditional request.
func (e *CacheEntry) HasValidator() bool {
	return e != nil && (e.ETag != "" || !e.LastModified.IsZero())
}

// AddConditionalHeaders sets If-None-Match (preferred) or
// If-Modified-Since on req.
func (e *CacheEntry) AddConditionalHeaders(req *http.Request) {
	if e == nil || req == nil {
		return
	}

	if e.ETag != "" {
		req.Header.Set("If-None-Match", e.ETag)
	} else if !e.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", e.LastModified.UTC().Format(http.TimeFormat))
	}
}

package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ResponseToEntry converts a successful response and its body into a cache
// entry. The second return value is false when the response forbids
// caching or carries no freshness information and defaultTTL is 0.
func ResponseToEntry(resp *http.Response, body []byte, defaultTTL time.Duration) (*CacheEntry, bool) {
	if resp == nil {
		return nil, false
	}

	now := time.Now()
	ttl, ok := freshness(resp.Header, defaultTTL, now)
	if !ok {
		return nil, false
	}

	entry := &CacheEntry{
		Data:        body,
		ETag:        resp.Header.Get("ETag"),
		Expires:     now.Add(ttl),
		ContentType: resp.Header.Get("Content-Type"),
		CachedAt:    now,
	}

	if lastModStr := resp.Header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry, true
}

// Refresh extends entry after a 304 Not Modified using the freshness
// headers of that response. It returns false when the new headers forbid
// further caching.
func Refresh(entry *CacheEntry, headers http.Header, defaultTTL time.Duration) bool {
	now := time.Now()
	ttl, ok := freshness(headers, defaultTTL, now)
	if !ok {
		return false
	}

	entry.Expires = now.Add(ttl)
	if etag := headers.Get("ETag"); etag != "" {
		entry.ETag = etag
	}
	return true
}

// freshness returns how long a response may be served from cache.
// Cache-Control max-age wins over Expires.
func freshness(headers http.Header, defaultTTL time.Duration, now time.Time) (time.Duration, bool) {
	if cc := headers.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.ToLower(strings.TrimSpace(directive))
			switch {
			case directive == "no-store", directive == "no-cache":
				return 0, false
			case strings.HasPrefix(directive, "max-age="):
				secs, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
				if err != nil || secs <= 0 {
					return 0, false
				}
				return time.Duration(secs) * time.Second, true
			}
		}
	}

	if expiresStr := headers.Get("Expires"); expiresStr != "" {
		expires, err := http.ParseTime(expiresStr)
		if err != nil || !expires.After(now) {
			return 0, false
		}
		return expires.Sub(now), true
	}

	if defaultTTL > 0 {
		return defaultTTL, true
	}
	return 0, false
}

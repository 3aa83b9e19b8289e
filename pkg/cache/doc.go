// Package cache provides an optional Redis-backed cache for API responses.
//
// Repeated exports of the same endpoint can be served from Redis instead of
// hitting the upstream API again. The cache follows the HTTP freshness
// rules the upstream advertises:
//
//   - Cache-Control: max-age (preferred) or Expires set the entry TTL
//   - Cache-Control: no-store / no-cache disable caching for the response
//   - ETag and Last-Modified enable conditional revalidation
//     (If-None-Match / If-Modified-Since); a 304 refreshes the entry
//
// Responses without freshness headers are only cached when a default TTL
// is configured.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.NewKey(req.URL, creds)
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API
//	}
//
// Keys never contain credentials: the credential bundle contributes only a
// one-way fingerprint, and the API key query parameter is stripped from the
// URL part of the key.
//
// # Metrics
//
//   - api2xlsx_cache_hits_total
//   - api2xlsx_cache_misses_total
//   - api2xlsx_cache_revalidations_total{result}
//   - api2xlsx_cache_errors_total{operation}
package cache

// Package cache provides an HTTP response cache for launch API pages,
// backed by Redis.
//
// Entries carry the validators (ETag, Last-Modified) and freshness
// (Expires or Cache-Control max-age) of the upstream response. Redis keeps
// an entry for its freshness lifetime plus StaleGrace, so an expired entry
// can still be revalidated with a conditional request and served again on
// 304 Not Modified.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Endpoint:    "/v3/launches",
//		QueryParams: url.Values{"limit": {"10"}, "offset": {"0"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	switch {
//	case errors.Is(err, cache.ErrCacheMiss):
//		// fetch from the API
//	case err == nil && !entry.IsExpired():
//		// serve entry.Data
//	case err == nil:
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Metrics
//
//   - launchlist_cache_hits_total{layer="redis"}
//   - launchlist_cache_misses_total
//   - launchlist_cache_size_bytes{layer="redis"}
//   - launchlist_304_responses_total
//   - launchlist_conditional_requests_total
//   - launchlist_cache_errors_total{operation}
package cache

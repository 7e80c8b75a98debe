package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix is prepended to every Redis key written by the cache.
const KeyPrefix = "launchlist"

// CacheKey identifies a cached API response.
type CacheKey struct {
	// Endpoint is the request path (e.g., "/v3/launches")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"limit": "10", "offset": "20"})
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: launchlist:endpoint:query1=val1:query2=val2
//
// Example:
//
//	launchlist:v3/launches:limit=10:offset=20
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Sorted for determinism
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

	return strings.Join(parts, ":")
}

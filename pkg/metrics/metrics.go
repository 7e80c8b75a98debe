// Package metrics exposes the Prometheus registry used by launchlist.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, feed) to maintain modularity and avoid circular dependencies.
//
// This package provides the exposition handler and documents every metric.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by launchlist.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects the metrics registered in Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - launchlist_rate_limit_remaining (Gauge): Requests remaining in the server window
//   - launchlist_rate_limit_blocks_total (Counter): Requests delayed by a 429 cooldown
//   - launchlist_rate_limit_throttles_total (Counter): Requests slowed down near the limit
//
// Cache Metrics (pkg/cache):
//   - launchlist_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - launchlist_cache_misses_total (Counter): Cache misses
//   - launchlist_cache_size_bytes{layer="redis"} (Gauge): Size of the last stored entry
//   - launchlist_304_responses_total (Counter): 304 Not Modified responses
//   - launchlist_conditional_requests_total (Counter): Conditional requests sent
//   - launchlist_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - launchlist_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - launchlist_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - launchlist_fetch_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//
// Retry Metrics (pkg/client):
//   - launchlist_retries_total{error_class} (Counter): Retry attempts by error class
//   - launchlist_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - launchlist_retry_exhausted_total{error_class} (Counter): Requests that exhausted max attempts
//
// Feed Metrics (pkg/feed):
//   - launchlist_feed_page_loads_total{kind, result} (Counter): initial/next loads by ok, error, stale
//   - launchlist_feed_filter_runs_total (Counter): Search filter recomputations
//   - launchlist_feed_sentinel_fires_total (Counter): Lazy loads requested by the scroll sentinel
//   - launchlist_feed_cached_launches (Gauge): Launches held in the feed cache
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(launchlist_cache_hits_total[5m])) /
//   (sum(rate(launchlist_cache_hits_total[5m])) + sum(rate(launchlist_cache_misses_total[5m])))
//
//   # Failed page loads
//   rate(launchlist_feed_page_loads_total{result="error"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(launchlist_request_duration_seconds_bucket[5m]))
//
//   # 304 Response Rate
//   rate(launchlist_304_responses_total[5m]) / rate(launchlist_requests_total[5m])

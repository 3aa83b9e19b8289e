// Package metrics exposes the Prometheus registry used by api2xlsx.
// All metrics are defined in their respective packages (client, cache,
// pagination, ratelimit, export) to maintain modularity and avoid circular
// dependencies.
//
// This package provides the scrape handler and a reference of every metric.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by api2xlsx.
// Every package registers its collectors on it with promauto.With(Registry).
var Registry = prometheus.DefaultRegisterer

// Gatherer is the counterpart of Registry used when scraping.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - api2xlsx_requests_total{status} (Counter): Requests by HTTP status, "cache" or "network_error"
//   - api2xlsx_request_duration_seconds (Histogram): Request duration
//   - api2xlsx_fetch_errors_total{class} (Counter): Fetch errors by class (request, client, server, network, decode)
//
// Pagination Metrics (pkg/pagination):
//   - api2xlsx_pages_fetched_total (Counter): Follow-up pages fetched
//   - api2xlsx_pagination_stops_total{reason} (Counter): Pagination endings by reason (complete, page_limit, time_limit, cycle, error)
//
// Pacing Metrics (pkg/ratelimit):
//   - api2xlsx_pacer_throttles_total (Counter): Requests delayed by the pacer
//   - api2xlsx_pacer_wait_seconds (Histogram): Time spent waiting for the pacer
//
// Cache Metrics (pkg/cache):
//   - api2xlsx_cache_hits_total{state} (Counter): Cache hits by freshness
//   - api2xlsx_cache_misses_total (Counter): Cache misses
//   - api2xlsx_cache_revalidations_total{result} (Counter): Conditional requests by outcome
//   - api2xlsx_cache_errors_total{operation} (Counter): Cache operation errors
//
// Export Metrics (pkg/export):
//   - api2xlsx_exports_total{result} (Counter): Workbook exports by result (success, empty, error)
//   - api2xlsx_exported_rows (Histogram): Rows per exported workbook
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(api2xlsx_cache_hits_total[5m])) /
//   (sum(rate(api2xlsx_cache_hits_total[5m])) + sum(rate(api2xlsx_cache_misses_total[5m])))
//
//   # Partial Pagination Rate
//   sum(rate(api2xlsx_pagination_stops_total{reason!="complete"}[5m])) /
//   sum(rate(api2xlsx_pagination_stops_total[5m]))
//
//   # Fetch Error Rate
//   rate(api2xlsx_fetch_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(api2xlsx_request_duration_seconds_bucket[5m]))

// Package metrics provides Prometheus metrics for the TCG Market service.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tcg_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)

	// Valuation Metrics
	ValuationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_valuation_requests_total",
			Help: "Valuation computations by outcome",
		},
		[]string{"result"}, // "ok", "fetch_error", "superseded"
	)

	ValuationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tcg_valuation_duration_seconds",
			Help:    "Time taken to fetch data and compute a valuation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	ValuationFetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_valuation_fetch_errors_total",
			Help: "Collaborator fetch failures that produced a zero result",
		},
		[]string{"store"}, // "holdings", "prices", "catalog"
	)

	ValuationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_valuation_cache_hits_total",
			Help: "Cached valuation lookups that found a result",
		},
	)

	ValuationCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_valuation_cache_misses_total",
			Help: "Cached valuation lookups that found nothing",
		},
	)

	// Holding Metrics
	HoldingMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_holding_mutations_total",
			Help: "Holding mutations by operation",
		},
		[]string{"operation"}, // "created", "priced", "sold", "unchanged"
	)

	// Snapshot Metrics
	SnapshotsRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_value_snapshots_recorded_total",
			Help: "Daily collection value snapshots written",
		},
	)

	SnapshotRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tcg_value_snapshot_run_duration_seconds",
			Help:    "Time taken to snapshot every collection",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	// Catalog Metrics
	CatalogEditions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcg_catalog_editions",
			Help: "Number of editions loaded into the catalog",
		},
	)

	CatalogCards = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcg_catalog_cards",
			Help: "Number of cards loaded into the catalog",
		},
	)
)

// GinMiddleware records request counts and latency per route template
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Package metrics exposes Prometheus collectors for the sourcing service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlsTotal                *prometheus.CounterVec
	fetchBytesTotal            *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	headlessPromotionsTotal    *prometheus.CounterVec
	readinessScore             *prometheus.HistogramVec
	exportRowsTotal            *prometheus.CounterVec
	exportArtifactsTotal       prometheus.Counter
	taxonomyReloadsTotal       *prometheus.CounterVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcer_crawls_total",
				Help: "Total number of product crawls, labeled by site profile and outcome.",
			},
			[]string{"profile", "outcome"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcer_fetch_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sourcer_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by site.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"site"},
		)

		headlessPromotionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcer_headless_promotions_total",
				Help: "Headless promotions attempted, labeled by result.",
			},
			[]string{"result"},
		)

		readinessScore = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sourcer_readiness_score",
				Help:    "Distribution of readiness scores, labeled by rubric.",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
			[]string{"rubric"},
		)

		exportRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcer_export_rows_total",
				Help: "Rows written to export artifacts, labeled by selection mode.",
			},
			[]string{"mode"},
		)

		exportArtifactsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sourcer_export_artifacts_total",
				Help: "Total number of export artifacts generated.",
			},
		)

		taxonomyReloadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcer_taxonomy_reloads_total",
				Help: "Taxonomy snapshot reloads, labeled by result.",
			},
			[]string{"result"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sourcer_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawl counts one crawl outcome for a site profile.
func ObserveCrawl(profile, outcome string) {
	if crawlsTotal == nil {
		return
	}
	if profile == "" {
		profile = "unknown"
	}
	crawlsTotal.WithLabelValues(profile, outcome).Inc()
}

// ObserveFetch records fetch latency and size for the URL's site.
func ObserveFetch(rawURL string, bytesFetched int, duration time.Duration) {
	if fetchDurationSeconds == nil {
		return
	}
	site := SanitizeSite(rawURL)
	fetchDurationSeconds.WithLabelValues(site).Observe(duration.Seconds())
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
}

// ObserveHeadlessPromotion counts a headless promotion attempt.
func ObserveHeadlessPromotion(ok bool) {
	if headlessPromotionsTotal == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "fallback"
	}
	headlessPromotionsTotal.WithLabelValues(result).Inc()
}

// ObserveScore records the qualitative, quantitative, and combined scores.
func ObserveScore(qualitative, quantitative, combined int) {
	if readinessScore == nil {
		return
	}
	readinessScore.WithLabelValues("qualitative").Observe(float64(qualitative))
	readinessScore.WithLabelValues("quantitative").Observe(float64(quantitative))
	readinessScore.WithLabelValues("combined").Observe(float64(combined))
}

// ObserveExport counts an export artifact and its rows.
func ObserveExport(mode string, rows int) {
	if exportArtifactsTotal == nil {
		return
	}
	exportArtifactsTotal.Inc()
	exportRowsTotal.WithLabelValues(mode).Add(float64(rows))
}

// ObserveTaxonomyReload counts a snapshot reload attempt.
func ObserveTaxonomyReload(err error) {
	if taxonomyReloadsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	taxonomyReloadsTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	if rateLimitDelaysSeconds == nil {
		return
	}
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

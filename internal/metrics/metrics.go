package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scraper",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scraper",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scraper",
		Name:      "upstream_requests_total",
		Help:      "Total requests to the upstream site by outcome (ok, error, status).",
	}, []string{"outcome"})

	UpstreamRequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scraper",
		Name:      "upstream_request_duration_seconds",
		Help:      "Upstream page fetch duration in seconds.",
		Buckets:   []float64{0.1, 0.3, 0.5, 1, 2, 5, 8, 15},
	})

	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scraper",
		Name:      "cache_hits_total",
		Help:      "Total cache hits by cache name (page, listing, spell).",
	}, []string{"cache"})

	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scraper",
		Name:      "cache_misses_total",
		Help:      "Total cache misses by cache name (page, listing, spell).",
	}, []string{"cache"})

	DetailFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scraper",
		Name:      "detail_fallbacks_total",
		Help:      "Listing blocks whose title required a detail-page fetch.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		CacheHitsTotal,
		CacheMissesTotal,
		DetailFallbacksTotal,
	)
}

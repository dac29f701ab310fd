package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querykit_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querykit_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	// SearchesTotal counts entity searches by outcome (ok, invalid, error).
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querykit_searches_total",
			Help: "Total number of entity searches",
		},
		[]string{"outcome"},
	)
	// SearchResults is the number of matches before paging.
	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querykit_search_results",
			Help:    "Number of entities matching a search before paging",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)
	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "querykit_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
)

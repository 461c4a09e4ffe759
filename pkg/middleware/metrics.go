package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logwise_http_requests_total",
		Help: "HTTP requests served, by method and status",
	}, []string{"method", "status"})
	httpDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "logwise_http_request_duration_seconds",
		Help:    "Time spent serving HTTP requests, analysis included",
		Buckets: prometheus.DefBuckets,
	})
	panicsRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logwise_panics_recovered_total",
		Help: "Handler panics captured by the recover middleware",
	})
	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logwise_http_rate_limited_total",
		Help: "Requests rejected with 429 by the rate limit middleware",
	})
)

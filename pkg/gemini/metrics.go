package gemini

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess        = "success"
	outcomeHTTPError      = "http_error"
	outcomeTransportError = "transport_error"
)

var (
	callLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "logwise_gemini_latency_seconds",
		Help:    "Time spent on generateContent round trips",
		Buckets: prometheus.DefBuckets,
	})
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logwise_gemini_calls_total",
		Help: "generateContent calls by outcome",
	}, []string{"outcome"})
	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "logwise_gemini_breaker_state",
		Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
	})
)

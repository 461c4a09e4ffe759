package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logwise_cache_hits_total",
		Help: "Recommendations served from the cache",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logwise_cache_misses_total",
		Help: "Analyses that missed the cache",
	})
	recommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logwise_recommendations_total",
		Help: "Freshly generated recommendations by outcome",
	}, []string{"outcome"})
	promptTokens = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "logwise_prompt_tokens",
		Help:    "Token count of prompts sent for analysis",
		Buckets: prometheus.ExponentialBuckets(32, 2, 8),
	})
	promptCost = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logwise_prompt_cost_estimate_total",
		Help: "Estimated prompt cost in USD",
	})
)

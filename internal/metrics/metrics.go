package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherwise_provider_calls_total",
			Help: "Total upstream provider calls",
		},
		[]string{"provider", "operation", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherwise_provider_latency_seconds",
			Help:    "Upstream provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	Lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherwise_lookups_total",
			Help: "Total weather lookups by query kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	Suggestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherwise_suggestions_total",
			Help: "Total activity suggestion requests by outcome",
		},
		[]string{"outcome"},
	)
)

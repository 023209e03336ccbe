package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchTierAnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentmart",
			Name:      "search_tier_answers_total",
			Help:      "Searches answered, by degradation tier",
		},
		[]string{"tier"},
	)

	SearchTierFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentmart",
			Name:      "search_tier_failures_total",
			Help:      "Failed tier attempts, by tier and error kind",
		},
		[]string{"tier", "kind"},
	)

	SearchDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentmart",
			Name:      "search_degraded_total",
			Help:      "Searches served without the rich tier",
		},
		[]string{"reason"}, // "fallback" / "exhausted"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agentmart",
			Name:      "search_duration_seconds",
			Help:      "Uncached search duration in seconds, by answering tier",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 8, 15},
		},
		[]string{"tier"},
	)

	FacetFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentmart",
			Name:      "facet_fallbacks_total",
			Help:      "Facet dimensions served from static fallbacks",
		},
		[]string{"dimension", "reason"}, // "timeout" / "error" / "empty"
	)

	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentmart",
			Name:      "cache_requests_total",
			Help:      "TTL cache lookups",
		},
		[]string{"cache", "result"}, // "hit" / "miss" / "expired"
	)

	InflightSharedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentmart",
			Name:      "inflight_shared_total",
			Help:      "Callers served by a fetch that more than one caller shared",
		},
		[]string{"registry"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search, cache and facet metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchTierAnswersTotal)
	prometheus.MustRegister(SearchTierFailuresTotal)
	prometheus.MustRegister(SearchDegradedTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(FacetFallbacksTotal)
	prometheus.MustRegister(CacheRequestsTotal)
	prometheus.MustRegister(InflightSharedTotal)
	searchMetricsRegistered = true
}

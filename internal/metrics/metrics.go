// Package metrics registers the recommender's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_recommend_requests_total",
			Help: "Total number of recommend calls by outcome",
		},
		[]string{"outcome"}, // "ok", "empty", "error"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookrec_recommend_duration_seconds",
			Help:    "Time spent scoring and ranking a query",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecommendResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookrec_recommend_results",
			Help:    "Number of results returned per recommend call",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	StoreRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookrec_store_rows",
			Help: "Rows in the loaded embedding store",
		},
	)

	StoreLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_store_loads_total",
			Help: "Embedding store load attempts by outcome",
		},
		[]string{"outcome"},
	)

	QueryCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrec_query_cache_hits_total",
			Help: "Query cache hits",
		},
	)

	QueryCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrec_query_cache_misses_total",
			Help: "Query cache misses",
		},
	)
)

// ObserveRecommend records one recommend call.
func ObserveRecommend(seconds float64, results int, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case results == 0:
		outcome = "empty"
	}
	RecommendRequests.WithLabelValues(outcome).Inc()
	if err == nil {
		RecommendDuration.Observe(seconds)
		RecommendResults.Observe(float64(results))
	}
}

// ObserveLoad records one store load attempt.
func ObserveLoad(rows int, err error) {
	if err != nil {
		StoreLoads.WithLabelValues("error").Inc()
		return
	}
	StoreLoads.WithLabelValues("ok").Inc()
	StoreRows.Set(float64(rows))
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "retrieval_requests_total",
			Help:      "Total retrieval requests",
		},
		[]string{"status"},
	)

	RetrievalMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "retrieval_matches_total",
			Help:      "Matches returned above threshold, by kind",
		},
		[]string{"kind"}, // "qa" / "chunk"
	)

	RetrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "recall",
			Name:      "retrieval_duration_seconds",
			Help:      "End-to-end retrieval duration including query embedding",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
)

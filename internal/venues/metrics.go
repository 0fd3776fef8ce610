package venues

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_source_failures_total",
			Help: "Total number of venue source failures or timeouts",
		},
		[]string{"source"},
	)

	candidateCounts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "venue_candidates_merged",
			Help:    "Number of candidates surviving merge and dedup per search",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		},
	)
)

func recordSourceFailure(source string) {
	sourceFailures.WithLabelValues(source).Inc()
}

func recordCandidates(count int) {
	candidateCounts.Observe(float64(count))
}

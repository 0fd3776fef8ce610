package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planning_analyses_total",
			Help: "Total number of analysis runs by outcome",
		},
		[]string{"status"},
	)

	scorerFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planning_scorer_fallbacks_total",
			Help: "Total number of times the deterministic scorer covered for the external one",
		},
	)
)

func recordAnalysis(status string) {
	analysesTotal.WithLabelValues(status).Inc()
}

func recordScorerFallback() {
	scorerFallbacks.Inc()
}

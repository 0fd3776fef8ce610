package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planning_sessions_created_total",
			Help: "Total number of planning sessions created",
		},
	)

	sessionsReused = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planning_sessions_reused_total",
			Help: "Total number of create calls that returned an existing active session",
		},
	)

	sessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planning_sessions_finished_total",
			Help: "Total number of sessions that reached a terminal status",
		},
		[]string{"status"},
	)

	preferencesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planning_preferences_submitted_total",
			Help: "Total number of preference submissions",
		},
		[]string{"role"},
	)

	compatibilityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "planning_compatibility_scores",
			Help:    "Distribution of compatibility scores stored on sessions",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

func recordSessionCreated(reused bool) {
	if reused {
		sessionsReused.Inc()
		return
	}
	sessionsCreated.Inc()
}

func recordSessionFinished(status string) {
	sessionsFinished.WithLabelValues(status).Inc()
}

func recordPreferencesSubmitted(role string) {
	preferencesSubmitted.WithLabelValues(role).Inc()
}

// RecordCompatibilityScore tracks the score distribution; exported because the
// analysis orchestrator stores scores through this package
func RecordCompatibilityScore(score float64) {
	compatibilityScores.Observe(score)
}

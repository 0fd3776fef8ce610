package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var invitationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "planning_invitations_total",
		Help: "Total number of invitation emails by delivery outcome",
	},
	[]string{"status"},
)

func recordInvitation(status string) {
	invitationsTotal.WithLabelValues(status).Inc()
}

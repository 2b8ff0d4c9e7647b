package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Notifications counts dispatch outcomes per channel actually used.
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendtrack_notifications_total",
		Help: "Notification dispatches by channel and outcome.",
	}, []string{"channel", "outcome"})

	// RosterRows counts parsed roster rows.
	RosterRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendtrack_roster_rows_total",
		Help: "Roster import rows by result.",
	}, []string{"result"})

	// RetentionPurged counts students hard-deleted by the retention sweep.
	RetentionPurged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendtrack_retention_purged_total",
		Help: "Students permanently removed by the retention sweep.",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendtrack_http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "attendtrack_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
)

func init() {
	prometheus.MustRegister(Notifications, RosterRows, RetentionPurged, HTTPRequests, HTTPDuration)
}

// Outcome labels.
const (
	OutcomeSent      = "sent"
	OutcomeFailed    = "failed"
	OutcomeNoContact = "no_contact"
)

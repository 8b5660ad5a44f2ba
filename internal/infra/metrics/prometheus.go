package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hackathon_status_messages_total",
		Help: "Total number of status-update messages consumed, by outcome",
	}, []string{"outcome"})

	TrackDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hackathon_track_job_duration_seconds",
		Help:    "Duration of the job-tracking use case",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"status"})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hackathon_job_transitions_total",
		Help: "Total number of job status transitions, accepted or ignored",
	}, []string{"status", "accepted"})

	NotificationsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hackathon_notifications_published_total",
		Help: "Total number of terminal-transition notifications published",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hackathon_active_workers",
		Help: "Number of consumer workers currently processing a message",
	})
)

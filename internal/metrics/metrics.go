// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registrations counts registration attempts by outcome
	// (created, resubmitted, conflict, invalid, error).
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Registration attempts by outcome",
		},
		[]string{"outcome", "pricing"},
	)

	// StatusTransitions counts admin status changes by target status.
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_status_transitions_total",
			Help: "Registration status transitions by target status",
		},
		[]string{"status"},
	)

	// OptimisticRetries counts registration writes that lost a version race.
	OptimisticRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registration_optimistic_retries_total",
			Help: "Registration updates retried after a concurrent write",
		},
	)

	// LedgerAppends counts participant ledger append attempts.
	LedgerAppends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_appends_total",
			Help: "Participant ledger appends by result (added, present)",
		},
		[]string{"result"},
	)

	// Notifications counts notification deliveries per sink.
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification deliveries by sink and status",
		},
		[]string{"sink", "status"},
	)

	// HTTPRequestDuration observes handler latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

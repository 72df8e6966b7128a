// ABOUTME: Prometheus counters for the two public endpoints.
// ABOUTME: Exposed via the promhttp handler mounted at /metrics.
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	intelRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchdesk_intel_requests_total",
			Help: "Threat-intel requests served, labeled by batch source.",
		},
		[]string{"source"},
	)

	incidentsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchdesk_incidents_accepted_total",
			Help: "Incident reports that passed validation and were dispatched.",
		},
	)

	incidentsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchdesk_incidents_rejected_total",
			Help: "Incident submissions rejected by validation.",
		},
	)

	notifyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchdesk_notify_failures_total",
			Help: "Notification channel send failures, labeled by channel.",
		},
		[]string{"channel"},
	)
)

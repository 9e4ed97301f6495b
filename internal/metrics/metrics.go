// Package metrics declares the Prometheus collectors of the consultation
// service. All collectors register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "consultation"

// Booking outcomes for BookingsTotal.
const (
	ResultSuccess  = "success"
	ResultConflict = "conflict"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// BookingsTotal counts book and reschedule attempts.
// Labels:
//   - operation: "book" or "reschedule"
//   - result: "success", "conflict", "rejected" (validation) or "error"
var BookingsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_total",
		Help:      "Total number of consultation booking attempts, by operation and result.",
	},
	[]string{"operation", "result"},
)

// TransitionsTotal counts successful status changes.
// Label:
//   - status: the status the consultation moved to
var TransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total number of consultation status transitions, by target status.",
	},
	[]string{"status"},
)

// EventsPublishedTotal counts snapshot publications.
// Label:
//   - result: "success" or "error"
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of consultation snapshots sent to the event stream.",
	},
	[]string{"result"},
)

// HTTPRequestDuration measures request latency per route template.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests, by method, route and status code.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "code"},
)

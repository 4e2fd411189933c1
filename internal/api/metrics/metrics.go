// Package metrics defines and registers all custom Prometheus metrics for the
// tour booking API. It is the single source of truth for metric names,
// labels, and help strings.
//
// All metrics register with the default Prometheus registry at init time and
// are exposed through the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tours"

// ── Checkout metrics ──────────────────────────────────────────────────────────

// CheckoutSessionsTotal counts checkout sessions requested against the
// payment provider.
// Label:
//   - result: "created" or "error"
var CheckoutSessionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_sessions_total",
		Help:      "Total number of payment checkout sessions requested, by result.",
	},
	[]string{"result"},
)

// WebhookEventsTotal counts webhook deliveries after signature verification.
// Label:
//   - result: "booked", "duplicate", "ignored" (non-checkout event types),
//     "dropped" (unreconcilable delivery), "invalid_signature", or "error"
var WebhookEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Total number of payment webhook deliveries, by processing result.",
	},
	[]string{"result"},
)

// BookingsCreatedTotal counts bookings persisted from completed checkouts.
var BookingsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_created_total",
		Help:      "Total number of bookings created from completed checkout sessions.",
	},
)

// ── Review metrics ────────────────────────────────────────────────────────────

// ReviewWritesTotal counts review mutations that trigger a tour rating
// recompute.
// Label:
//   - op: "create", "update", or "delete"
var ReviewWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "review_writes_total",
		Help:      "Total number of review mutations, by operation.",
	},
	[]string{"op"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

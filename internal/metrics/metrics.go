// Package metrics registers the Prometheus collectors for the scanner and
// the helpers services use to update them. Collectors live on the default
// registry and are served by promhttp on GET /metrics.
//
// Labels are bounded enums only. User, scan and IP identifiers never
// appear as label values.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nocap"

// Scan lifecycle.
var (
	// outcome: accepted, invalid, safety_blocked, daily_limit, upstream_error
	ScansSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_submitted_total",
		Help:      "Scan submissions by outcome",
	}, []string{"outcome"})

	// state: full, locked
	ScanViews = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_views_total",
		Help:      "Scan views by resolved state",
	}, []string{"state"})

	// source: pro, unlock_token, checkout_session, webhook
	ScansUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_unlocked_total",
		Help:      "Persisted unlock transitions by source",
	}, []string{"source"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Payment webhook deliveries by event type and handling status",
	}, []string{"type", "status"})
)

// Analysis provider calls, aggregated per provider.
var (
	// status: success, malformed, timeout, rate_limited, unauthorized, content_policy, error
	AIAPICalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ai",
		Name:      "calls_total",
		Help:      "Analysis provider calls by result",
	}, []string{"provider", "status"})

	AIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Latency of analysis provider calls",
		Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"provider"})

	// direction: input, output
	AITokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ai",
		Name:      "tokens_total",
		Help:      "Tokens billed by the analysis provider",
	}, []string{"direction"})
)

package metrics

import "time"

// ScanOutcome records the terminal outcome of a scan submission.
func ScanOutcome(outcome string) {
	ScansSubmitted.WithLabelValues(outcome).Inc()
}

// ScanViewed records the state a viewer saw.
func ScanViewed(state string) {
	ScanViews.WithLabelValues(state).Inc()
}

// ScanUnlocked records a persisted false->true unlock.
func ScanUnlocked(source string) {
	ScansUnlocked.WithLabelValues(source).Inc()
}

// WebhookReceived records a payment webhook delivery.
func WebhookReceived(eventType, status string) {
	WebhookEvents.WithLabelValues(eventType, status).Inc()
}

// AICall records one provider round trip. status is one of the AIAPICalls
// status values.
func AICall(provider, status string, elapsed time.Duration) {
	AIRequestDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	AIAPICalls.WithLabelValues(provider, status).Inc()
}

// AITokens adds the usage reported for one completion.
func AITokens(input, output int) {
	AITokensTotal.WithLabelValues("input").Add(float64(input))
	AITokensTotal.WithLabelValues("output").Add(float64(output))
}

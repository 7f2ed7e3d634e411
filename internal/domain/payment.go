package domain

import (
	"time"

	"github.com/google/uuid"
)

// Plan is what the viewer is buying at checkout.
type Plan string

const (
	PlanOneTime Plan = "onetime" // unlock a single scan
	PlanMonthly Plan = "monthly" // Pro subscription
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	return p == PlanOneTime || p == PlanMonthly
}

// PaymentEvent is a verified "checkout completed" signal tied to one scan and one user.
type PaymentEvent struct {
	SessionID  string
	UserID     uuid.UUID
	ScanID     uuid.UUID
	Plan       Plan
	Source     string // "webhook" or "lookup"
	RecordedAt time.Time
}

// CheckoutSession is the subset of a provider checkout session the unlock
// rules care about.
type CheckoutSession struct {
	ID         string
	Paid       bool
	UserID     string
	ScanID     string
	Plan       Plan
	CustomerID string
	URL        string
}

// Matches reports whether the session pays for scanID on behalf of userID.
func (c *CheckoutSession) Matches(scanID, userID uuid.UUID) bool {
	return c.Paid && c.ScanID == scanID.String() && c.UserID == userID.String()
}

// CheckoutRequest is a viewer asking to pay for a scan or for Pro.
type CheckoutRequest struct {
	Plan   Plan
	ScanID uuid.UUID
	Viewer *Viewer
}

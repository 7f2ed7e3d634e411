// Package billing provides the Stripe integration: checkout creation,
// checkout-session lookup and webhook verification.
package billing

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Metadata keys written on every checkout session.
const (
	MetadataUserID = "user_id"
	MetadataScanID = "scan_id"
	MetadataPlan   = "plan"
)

// ErrSessionNotFound is returned when Stripe has no session with the given id.
var ErrSessionNotFound = errors.New("checkout session not found")

// CheckoutParams describes a checkout to create.
type CheckoutParams struct {
	Plan       domain.Plan
	UserID     string
	ScanID     string // empty for a Pro upgrade not tied to a scan
	Email      string
	CustomerID string // reused when the profile already has one
	SuccessURL string
	CancelURL  string
}

// Service defines the interface for billing operations.
type Service interface {
	// CreateCheckoutSession creates a Stripe Checkout session and returns it
	// with the URL to redirect the viewer to.
	CreateCheckoutSession(params CheckoutParams) (*domain.CheckoutSession, error)

	// GetCheckoutSession fetches a session by id.
	GetCheckoutSession(sessionID string) (*domain.CheckoutSession, error)

	// VerifyWebhookSignature verifies the Stripe webhook signature and returns the event.
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)
}

// PriceConfig holds the Stripe price IDs for each plan.
type PriceConfig struct {
	OneTimePriceID string
	MonthlyPriceID string
}

// PriceIDFor returns the configured price for plan.
func (p PriceConfig) PriceIDFor(plan domain.Plan) string {
	switch plan {
	case domain.PlanOneTime:
		return p.OneTimePriceID
	case domain.PlanMonthly:
		return p.MonthlyPriceID
	default:
		return ""
	}
}

// stripeService is the concrete implementation of Service.
type stripeService struct {
	webhookSecret string
	prices        PriceConfig
}

// NewStripeService creates a new Stripe billing service.
//
// The secretKey is used to authenticate Stripe API calls.
// The webhookSecret is used to verify incoming webhook signatures.
func NewStripeService(secretKey, webhookSecret string, prices PriceConfig) Service {
	stripe.Key = secretKey

	return &stripeService{
		webhookSecret: webhookSecret,
		prices:        prices,
	}
}

func (s *stripeService) CreateCheckoutSession(params CheckoutParams) (*domain.CheckoutSession, error) {
	priceID := s.prices.PriceIDFor(params.Plan)
	if priceID == "" {
		return nil, fmt.Errorf("no price configured for plan %q", params.Plan)
	}

	sp := BuildCheckoutParams(params, priceID)
	sess, err := checkoutsession.New(sp)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", err)
	}
	return SessionFromStripe(sess), nil
}

func (s *stripeService) GetCheckoutSession(sessionID string) (*domain.CheckoutSession, error) {
	sess, err := checkoutsession.Get(sessionID, nil)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("stripe get checkout session: %w", err)
	}
	return SessionFromStripe(sess), nil
}

func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}
	return event, nil
}

// BuildCheckoutParams maps a checkout request onto Stripe parameters:
// payment mode for a one-time unlock, subscription mode for Pro. The
// metadata is copied to the subscription so later subscription events can
// be attributed to the user.
func BuildCheckoutParams(params CheckoutParams, priceID string) *stripe.CheckoutSessionParams {
	metadata := map[string]string{
		MetadataUserID: params.UserID,
		MetadataPlan:   string(params.Plan),
	}
	if params.ScanID != "" {
		metadata[MetadataScanID] = params.ScanID
	}

	sp := &stripe.CheckoutSessionParams{
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(params.UserID),
		SuccessURL:        stripe.String(params.SuccessURL),
		CancelURL:         stripe.String(params.CancelURL),
	}
	for k, v := range metadata {
		sp.AddMetadata(k, v)
	}

	if params.Plan == domain.PlanMonthly {
		sp.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
		sp.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		}
	} else {
		sp.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
	}

	if params.CustomerID != "" {
		sp.Customer = stripe.String(params.CustomerID)
	} else if params.Email != "" {
		sp.CustomerEmail = stripe.String(params.Email)
	}

	return sp
}

// SessionFromStripe converts a Stripe session to the fields the unlock rules use.
func SessionFromStripe(sess *stripe.CheckoutSession) *domain.CheckoutSession {
	out := &domain.CheckoutSession{
		ID:   sess.ID,
		URL:  sess.URL,
		Paid: sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired,
	}
	if sess.Metadata != nil {
		out.UserID = sess.Metadata[MetadataUserID]
		out.ScanID = sess.Metadata[MetadataScanID]
		out.Plan = domain.Plan(sess.Metadata[MetadataPlan])
	}
	if out.UserID == "" {
		out.UserID = sess.ClientReferenceID
	}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	return out
}

// SessionFromEvent decodes the checkout session carried by a
// checkout.session.* event.
func SessionFromEvent(event stripe.Event) (*domain.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("parse checkout session: %w", err)
	}
	return SessionFromStripe(&sess), nil
}

// SubscriptionChange is the part of a customer.subscription.* event that
// decides the user's tier.
type SubscriptionChange struct {
	SubscriptionID string
	CustomerID     string
	UserID         string
	Active         bool
}

// SubscriptionFromEvent decodes a customer.subscription.* event. Deleted
// subscriptions are never active.
func SubscriptionFromEvent(event stripe.Event) (*SubscriptionChange, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, fmt.Errorf("parse subscription: %w", err)
	}

	change := &SubscriptionChange{
		SubscriptionID: sub.ID,
		Active: event.Type != "customer.subscription.deleted" &&
			(sub.Status == stripe.SubscriptionStatusActive || sub.Status == stripe.SubscriptionStatusTrialing),
	}
	if sub.Customer != nil {
		change.CustomerID = sub.Customer.ID
	}
	if sub.Metadata != nil {
		change.UserID = sub.Metadata[MetadataUserID]
	}
	return change, nil
}

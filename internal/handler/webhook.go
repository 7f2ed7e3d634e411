// Package handler contains the JSON HTTP handlers.
//
// This file implements the Stripe webhook handler for processing billing events.
//
// Route:
//   - POST /webhooks/stripe -> HandleStripeWebhook
//
// This route is PUBLIC (no auth middleware) because Stripe calls it directly.
// Authentication is via the Stripe webhook signature verification.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/nocap/internal/billing"
	"github.com/DukeRupert/nocap/internal/cache"
	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/DukeRupert/nocap/internal/metrics"
	"github.com/DukeRupert/nocap/internal/service"
	"github.com/stripe/stripe-go/v79"
)

// WebhookHandler handles incoming webhook events from Stripe.
type WebhookHandler struct {
	billing  billing.Service
	payments service.BillingService
	dedup    cache.Deduper
	logger   *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(billingService billing.Service, payments service.BillingService, dedup cache.Deduper, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing:  billingService,
		payments: payments,
		dedup:    dedup,
		logger:   logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
// These routes are PUBLIC: Stripe authenticates with the signature header.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook processes incoming Stripe webhook events. Each event
// id is processed at most once; a failed event is released so Stripe's
// retry can process it again.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	// Read body (limit to 64KB)
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Verify signature
	signature := r.Header.Get("Stripe-Signature")
	event, err := h.billing.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		metrics.WebhookReceived("unknown", "invalid_signature")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	eventType := string(event.Type)
	h.logger.Info("stripe webhook received", "type", eventType, "id", event.ID)

	ctx := r.Context()
	claimed, err := h.dedup.Claim(ctx, event.ID)
	if err != nil {
		// Processing is idempotent, so a dedup outage only costs extra work
		h.logger.Warn("webhook dedup unavailable", "error", err, "id", event.ID)
		claimed = true
	}
	if !claimed {
		h.logger.Info("duplicate webhook event skipped", "type", eventType, "id", event.ID)
		metrics.WebhookReceived(eventType, "duplicate")
		w.WriteHeader(http.StatusOK)
		return
	}

	err = h.dispatch(ctx, event)
	if domain.ErrorCode(err) == domain.EINVALID {
		// Retrying an event we cannot use would never succeed
		h.logger.Warn("webhook event ignored", "error", err, "type", eventType, "id", event.ID)
		metrics.WebhookReceived(eventType, "ignored")
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		h.logger.Error("webhook processing failed", "error", err, "type", eventType, "id", event.ID)
		if relErr := h.dedup.Release(ctx, event.ID); relErr != nil {
			h.logger.Warn("failed to release webhook event", "error", relErr, "id", event.ID)
		}
		metrics.WebhookReceived(eventType, "error")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	metrics.WebhookReceived(eventType, "processed")
	w.WriteHeader(http.StatusOK)
}

// dispatch routes an event to its handler. Unknown types are acknowledged.
func (h *WebhookHandler) dispatch(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		sess, err := billing.SessionFromEvent(event)
		if err != nil {
			return err
		}
		return h.payments.CompleteCheckout(ctx, sess)

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		change, err := billing.SubscriptionFromEvent(event)
		if err != nil {
			return err
		}
		return h.payments.ApplySubscription(ctx, change)

	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
		return nil
	}
}

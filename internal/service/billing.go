// Package service contains the business logic layer.
//
// This file implements the billing service: starting checkouts and applying
// completed payments and subscription changes reported by the payment
// provider.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/nocap/internal/billing"
	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/DukeRupert/nocap/internal/metrics"
	"github.com/DukeRupert/nocap/internal/repository"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// BillingService defines checkout and payment bookkeeping operations.
type BillingService interface {
	// CreateCheckout starts a checkout for req.Plan and returns the session
	// with its redirect URL.
	// Returns domain.EUNAUTHORIZED for anonymous viewers, domain.EINVALID for
	// a bad plan or missing scan, domain.ENOTFOUND for an unknown scan and
	// domain.EUNAVAILABLE when payments are not configured.
	CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error)

	// CompleteCheckout records a paid session: the payment event, the scan
	// unlock for one-time purchases and the Pro tier for subscriptions.
	// Unpaid sessions are ignored. Safe to call more than once per session.
	CompleteCheckout(ctx context.Context, sess *domain.CheckoutSession) error

	// ApplySubscription moves a user between free and Pro.
	ApplySubscription(ctx context.Context, change *billing.SubscriptionChange) error
}

// =============================================================================
// Implementation
// =============================================================================

type billingService struct {
	store   repository.Store
	billing billing.Service // nil when payments are not configured
	baseURL string
	now     Clock
	logger  *slog.Logger
}

// NewBillingService creates a new BillingService. billingSvc may be nil.
func NewBillingService(store repository.Store, billingSvc billing.Service, baseURL string, logger *slog.Logger) BillingService {
	return &billingService{
		store:   store,
		billing: billingSvc,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
		logger:  logger,
	}
}

// =============================================================================
// CreateCheckout
// =============================================================================

func (s *billingService) CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	const op = "billing.create_checkout"

	if req.Viewer == nil {
		return nil, domain.Unauthorized(op, "You need to sign in to unlock results")
	}
	if s.billing == nil {
		return nil, domain.Unavailable(op, "Payments are not available right now")
	}
	if !req.Plan.Valid() {
		return nil, domain.Invalid(op, "Invalid plan")
	}

	hasScan := req.ScanID != uuid.Nil
	if req.Plan == domain.PlanOneTime && !hasScan {
		return nil, domain.Invalid(op, "scanId is required for a one-time unlock")
	}
	if hasScan {
		if _, err := getScan(ctx, s.store, req.ScanID, op); err != nil {
			return nil, err
		}
	}

	profile, err := getOrCreateProfile(ctx, s.store, req.Viewer, s.now(), false)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load profile")
	}
	if req.Plan == domain.PlanMonthly && domain.Tier(profile.Tier) == domain.TierPro {
		return nil, domain.Invalid(op, "You already have Pro")
	}

	params := billing.CheckoutParams{
		Plan:       req.Plan,
		UserID:     req.Viewer.ID.String(),
		Email:      req.Viewer.Email,
		CustomerID: profile.StripeCustomerID.String,
		SuccessURL: s.baseURL + "/?checkout_session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.baseURL + "/pricing",
	}
	if hasScan {
		result := s.baseURL + "/result/" + req.ScanID.String()
		params.ScanID = req.ScanID.String()
		params.SuccessURL = result + "?checkout_session_id={CHECKOUT_SESSION_ID}"
		params.CancelURL = result
	}

	sess, err := s.billing.CreateCheckoutSession(params)
	if err != nil {
		s.logger.Error("checkout creation failed", "error", err, "plan", req.Plan, "user_id", req.Viewer.ID)
		return nil, domain.Upstream(err, op)
	}

	s.logger.Info("checkout created",
		"checkout_session_id", sess.ID,
		"plan", req.Plan,
		"user_id", req.Viewer.ID,
		"scan_id", params.ScanID,
	)
	return sess, nil
}

// =============================================================================
// CompleteCheckout
// =============================================================================

func (s *billingService) CompleteCheckout(ctx context.Context, sess *domain.CheckoutSession) error {
	const op = "billing.complete_checkout"

	if !sess.Paid {
		s.logger.Info("ignoring unpaid checkout session", "checkout_session_id", sess.ID)
		return nil
	}

	userID, err := uuid.Parse(sess.UserID)
	if err != nil {
		return domain.Invalid(op, fmt.Sprintf("checkout session %s has no valid user id", sess.ID))
	}

	var scanID uuid.NullUUID
	if sess.ScanID != "" {
		id, err := uuid.Parse(sess.ScanID)
		if err != nil {
			return domain.Invalid(op, fmt.Sprintf("checkout session %s has an invalid scan id", sess.ID))
		}
		scanID = uuid.NullUUID{UUID: id, Valid: true}
	}

	plan := sess.Plan
	if !plan.Valid() {
		plan = domain.PlanOneTime
	}

	now := s.now()
	var unlocked bool
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		if _, err := getOrCreateProfile(ctx, q, &domain.Viewer{ID: userID}, now, false); err != nil {
			return err
		}

		if scanID.Valid {
			if _, err := q.GetScan(ctx, scanID.UUID); errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("paid checkout for unknown scan", "checkout_session_id", sess.ID, "scan_id", scanID.UUID)
				scanID = uuid.NullUUID{}
			} else if err != nil {
				return fmt.Errorf("get scan: %w", err)
			}
		}

		if _, err := q.InsertPaymentEvent(ctx, repository.InsertPaymentEventParams{
			SessionID: sess.ID,
			UserID:    userID,
			ScanID:    scanID,
			Plan:      string(plan),
			Source:    PaymentSourceWebhook,
		}); err != nil {
			return fmt.Errorf("insert payment event: %w", err)
		}

		if scanID.Valid {
			n, err := q.MarkScanUnlocked(ctx, repository.MarkScanUnlockedParams{ID: scanID.UUID, UnlockedAt: now})
			if err != nil {
				return fmt.Errorf("mark scan unlocked: %w", err)
			}
			unlocked = n == 1
		}

		if sess.CustomerID != "" {
			if err := q.UpdateProfileStripeCustomer(ctx, repository.UpdateProfileStripeCustomerParams{
				ID:               userID,
				StripeCustomerID: toNullString(sess.CustomerID),
			}); err != nil {
				return fmt.Errorf("update stripe customer: %w", err)
			}
		}

		if plan == domain.PlanMonthly {
			if err := q.UpdateProfileTier(ctx, repository.UpdateProfileTierParams{
				ID:   userID,
				Tier: string(domain.TierPro),
			}); err != nil {
				return fmt.Errorf("update tier: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Internal(err, op, "failed to record payment")
	}

	if unlocked {
		metrics.ScanUnlocked(PaymentSourceWebhook)
	}
	s.logger.Info("checkout completed",
		"checkout_session_id", sess.ID,
		"user_id", userID,
		"plan", plan,
		"scan_unlocked", unlocked,
	)
	return nil
}

// =============================================================================
// ApplySubscription
// =============================================================================

func (s *billingService) ApplySubscription(ctx context.Context, change *billing.SubscriptionChange) error {
	const op = "billing.apply_subscription"

	tier := domain.TierFree
	if change.Active {
		tier = domain.TierPro
	}

	if userID, err := uuid.Parse(change.UserID); err == nil {
		if err := s.store.UpdateProfileTier(ctx, repository.UpdateProfileTierParams{
			ID:   userID,
			Tier: string(tier),
		}); err != nil {
			return domain.Internal(err, op, "failed to update tier")
		}
		s.logger.Info("subscription applied", "user_id", userID, "tier", tier, "subscription_id", change.SubscriptionID)
		return nil
	}

	if change.CustomerID == "" {
		s.logger.Warn("subscription event without user or customer", "subscription_id", change.SubscriptionID)
		return nil
	}

	n, err := s.store.UpdateProfileTierByStripeCustomer(ctx, repository.UpdateProfileTierByStripeCustomerParams{
		StripeCustomerID: toNullString(change.CustomerID),
		Tier:             string(tier),
	})
	if err != nil {
		return domain.Internal(err, op, "failed to update tier")
	}
	if n == 0 {
		s.logger.Warn("no profile for stripe customer", "customer_id", change.CustomerID, "subscription_id", change.SubscriptionID)
		return nil
	}

	s.logger.Info("subscription applied", "customer_id", change.CustomerID, "tier", tier, "subscription_id", change.SubscriptionID)
	return nil
}

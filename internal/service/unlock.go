// Package service contains the business logic layer.
//
// This file implements the unlock service: deciding what a viewer may see
// of a scan and persisting paid unlocks.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/DukeRupert/nocap/internal/billing"
	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/DukeRupert/nocap/internal/metrics"
	"github.com/DukeRupert/nocap/internal/repository"
	"github.com/google/uuid"
)

// Payment event sources.
const (
	PaymentSourceWebhook = "webhook"
	PaymentSourceLookup  = "lookup"
)

// =============================================================================
// Interface Definition
// =============================================================================

// UnlockService defines operations for viewing scans behind the paywall.
type UnlockService interface {
	// View resolves what req.Viewer may see of the scan. A verified payment
	// for this scan and this viewer flips the stored flag, once.
	// Returns domain.ENOTFOUND if the scan does not exist.
	View(ctx context.Context, req domain.ViewRequest) (*domain.ScanView, error)
}

// =============================================================================
// Implementation
// =============================================================================

type unlockService struct {
	store   repository.Store
	usage   UsageService
	tokens  UnlockTokenIssuer
	billing billing.Service // nil when payments are not configured
	now     Clock
	logger  *slog.Logger
}

// NewUnlockService creates a new UnlockService. billingSvc may be nil, in
// which case only locally recorded payment events count as verified.
func NewUnlockService(
	store repository.Store,
	usage UsageService,
	tokens UnlockTokenIssuer,
	billingSvc billing.Service,
	logger *slog.Logger,
) UnlockService {
	return &unlockService{
		store:   store,
		usage:   usage,
		tokens:  tokens,
		billing: billingSvc,
		now:     time.Now,
		logger:  logger,
	}
}

// View resolves and, when a payment is verified, persists the unlock.
func (s *unlockService) View(ctx context.Context, req domain.ViewRequest) (*domain.ScanView, error) {
	const op = "unlock.view"

	record, err := getScan(ctx, s.store, req.ScanID, op)
	if err != nil {
		return nil, err
	}

	in := domain.ViewInputs{Authenticated: req.Viewer != nil}
	if in.Authenticated {
		tier, err := s.usage.GetTier(ctx, req.Viewer.ID)
		if err != nil {
			return nil, err
		}
		in.ViewerTier = tier
	}

	// Payment is only worth verifying when nothing stronger already applies
	if in.Authenticated && in.ViewerTier != domain.TierPro && !record.Unlocked && req.CheckoutSessionID != "" {
		in.PaymentVerified = s.verifyPayment(ctx, req.CheckoutSessionID, record.ID, req.Viewer.ID)
	}

	if req.UnlockToken != "" && s.tokens != nil {
		in.JustUnlocked = s.tokens.Verify(req.UnlockToken, record.ID) == nil
	}

	decision := domain.ResolveView(record, in)

	if decision.Persist {
		now := s.now()
		n, err := s.store.MarkScanUnlocked(ctx, repository.MarkScanUnlockedParams{
			ID:         record.ID,
			UnlockedAt: now,
		})
		if err != nil {
			return nil, domain.Internal(err, op, "failed to unlock scan")
		}
		if n == 1 {
			metrics.ScanUnlocked(string(domain.UnlockSourcePayment))
			s.logger.Info("scan unlocked",
				"scan_id", record.ID,
				"user_id", req.Viewer.ID,
				"checkout_session_id", req.CheckoutSessionID,
			)
		}
		record.MarkUnlocked(now)
	}

	metrics.ScanViewed(string(decision.State))

	view := &domain.ScanView{
		ScanID:  record.ID.String(),
		State:   decision.State,
		Source:  decision.Source,
		Context: record.Context,
		Score:   record.Score,
		CapTier: domain.CapTierFor(record.Score),
	}
	if decision.State == domain.ViewUnlocked {
		full := record.Result()
		view.Result = &full
	}
	return view, nil
}

// verifyPayment reports whether sessionID is a completed payment for scanID
// by userID. A locally recorded event is trusted; otherwise the session is
// looked up with the payment provider and recorded when it checks out.
// Lookup failures leave the scan locked.
func (s *unlockService) verifyPayment(ctx context.Context, sessionID string, scanID, userID uuid.UUID) bool {
	event, err := s.store.GetPaymentEvent(ctx, sessionID)
	switch {
	case err == nil:
		return event.UserID == userID && event.ScanID.Valid && event.ScanID.UUID == scanID
	case !errors.Is(err, sql.ErrNoRows):
		s.logger.Error("failed to load payment event", "error", err, "checkout_session_id", sessionID)
		return false
	}

	if s.billing == nil {
		return false
	}

	sess, err := s.billing.GetCheckoutSession(sessionID)
	if err != nil {
		if !errors.Is(err, billing.ErrSessionNotFound) {
			s.logger.Error("checkout session lookup failed", "error", err, "checkout_session_id", sessionID)
		}
		return false
	}
	if !sess.Matches(scanID, userID) {
		s.logger.Warn("checkout session does not match scan",
			"checkout_session_id", sessionID,
			"scan_id", scanID,
			"user_id", userID,
			"paid", sess.Paid,
		)
		return false
	}

	plan := sess.Plan
	if !plan.Valid() {
		plan = domain.PlanOneTime
	}
	if _, err := s.store.InsertPaymentEvent(ctx, repository.InsertPaymentEventParams{
		SessionID: sessionID,
		UserID:    userID,
		ScanID:    uuid.NullUUID{UUID: scanID, Valid: true},
		Plan:      string(plan),
		Source:    PaymentSourceLookup,
	}); err != nil {
		// The lookup itself succeeded, so the viewer still sees the scan
		s.logger.Error("failed to record payment event", "error", err, "checkout_session_id", sessionID)
	}
	return true
}

// Package service contains the business logic layer.
//
// This file implements the usage service: the persisted side of the daily
// scan ledger and the entitlement check run before every scan.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/DukeRupert/nocap/internal/repository"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// UsageService defines operations on a user's usage ledger.
type UsageService interface {
	// Authorize evaluates whether viewer may run a scan now. A nil viewer is
	// anonymous and always allowed. A due daily reset is persisted before
	// the limit check. Profiles are created on first sight.
	Authorize(ctx context.Context, viewer *domain.Viewer) (domain.Entitlement, error)

	// GetUsage returns the viewer's ledger as of now, creating the profile
	// if needed. The reset is applied for display only.
	GetUsage(ctx context.Context, viewer *domain.Viewer) (*domain.UsageSnapshot, error)

	// GetTier returns the stored tier of userID, TierFree when the user has
	// no profile yet.
	GetTier(ctx context.Context, userID uuid.UUID) (domain.Tier, error)
}

// =============================================================================
// Implementation
// =============================================================================

type usageService struct {
	store  repository.Store
	policy domain.EntitlementPolicy
	now    Clock
	logger *slog.Logger
}

// NewUsageService creates a new UsageService.
func NewUsageService(store repository.Store, policy domain.EntitlementPolicy, logger *slog.Logger) UsageService {
	return &usageService{
		store:  store,
		policy: policy,
		now:    time.Now,
		logger: logger,
	}
}

// Authorize runs the entitlement check inside a transaction holding the
// profile row lock, so concurrent submissions by one user are serialized.
func (s *usageService) Authorize(ctx context.Context, viewer *domain.Viewer) (domain.Entitlement, error) {
	const op = "usage.authorize"

	now := s.now()
	if viewer == nil {
		return s.policy.Evaluate(nil, now), nil
	}

	var ent domain.Entitlement
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		profile, err := getOrCreateProfile(ctx, q, viewer, now, true)
		if err != nil {
			return err
		}

		ledger := profileToLedger(profile)
		ent = s.policy.Evaluate(&ledger, now)
		if ent.MustReset {
			if err := q.ResetDailyScans(ctx, repository.ResetDailyScansParams{
				ID:            viewer.ID,
				LastScanReset: ent.Ledger.LastScanReset,
			}); err != nil {
				return err
			}
			s.logger.Debug("daily scans reset", "user_id", viewer.ID)
		}
		return nil
	})
	if err != nil {
		return domain.Entitlement{}, domain.Internal(err, op, "failed to check usage")
	}

	if !ent.Allowed {
		s.logger.Info("scan denied",
			"user_id", viewer.ID,
			"reason", ent.DenialReason,
			"scans_today", ent.NewCount,
		)
	}
	return ent, nil
}

// GetUsage returns the current usage snapshot.
func (s *usageService) GetUsage(ctx context.Context, viewer *domain.Viewer) (*domain.UsageSnapshot, error) {
	const op = "usage.get"

	if viewer == nil {
		return nil, domain.Unauthorized(op, "sign in to see your usage")
	}

	now := s.now()
	profile, err := getOrCreateProfile(ctx, s.store, viewer, now, false)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load usage")
	}

	snap := s.policy.Snapshot(profileToLedger(profile), now)
	return &snap, nil
}

// GetTier returns the stored tier.
func (s *usageService) GetTier(ctx context.Context, userID uuid.UUID) (domain.Tier, error) {
	const op = "usage.get_tier"

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TierFree, nil
		}
		return "", domain.Internal(err, op, "failed to load profile")
	}
	return domain.Tier(profile.Tier), nil
}

// getOrCreateProfile loads the viewer's profile, inserting a free profile
// the first time a user is seen. With lock set the row is read FOR UPDATE,
// which only makes sense inside a transaction.
func getOrCreateProfile(ctx context.Context, q repository.Querier, viewer *domain.Viewer, now time.Time, lock bool) (repository.Profile, error) {
	get := q.GetProfile
	if lock {
		get = q.GetProfileForUpdate
	}

	profile, err := get(ctx, viewer.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return repository.Profile{}, err
	}

	if err := q.InsertProfile(ctx, repository.InsertProfileParams{
		ID:            viewer.ID,
		Email:         viewer.Email,
		LastScanReset: now,
	}); err != nil {
		return repository.Profile{}, err
	}
	return get(ctx, viewer.ID)
}

// Package service contains the business logic layer.
//
// This file implements the scan service: the submission pipeline from raw
// messages to a persisted, possibly locked, scan record.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DukeRupert/nocap/internal/ai"
	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/DukeRupert/nocap/internal/metrics"
	"github.com/DukeRupert/nocap/internal/repository"
	"github.com/google/uuid"
)

// Analyzer screens and analyzes chat excerpts. *ai.Gateway implements it.
type Analyzer interface {
	Screen(in ai.AnalyzeInput) error
	Analyze(ctx context.Context, in ai.AnalyzeInput) (*ai.Analysis, error)
}

// UnlockTokenIssuer issues and checks just-unlocked capabilities.
// *auth.UnlockTokens implements it.
type UnlockTokenIssuer interface {
	Issue(scanID uuid.UUID) (string, error)
	Verify(token string, scanID uuid.UUID) error
}

// =============================================================================
// Interface Definition
// =============================================================================

// ScanService defines the scan submission pipeline.
type ScanService interface {
	// Submit validates, screens, checks entitlement, analyzes and persists a
	// scan. Returns domain.EINVALID or domain.ESAFETY before any usage is
	// consumed, and domain.EUPSTREAM when analysis fails. A daily-limit
	// denial is a result with Accepted=false.
	Submit(ctx context.Context, params domain.SubmitScanParams) (*domain.SubmitResult, error)
}

// ScanServiceConfig holds the knobs of the scan service.
type ScanServiceConfig struct {
	// BaseURL prefixes share links, e.g. https://nocap.app.
	BaseURL string
}

// =============================================================================
// Implementation
// =============================================================================

type scanService struct {
	store    repository.Store
	usage    UsageService
	analyzer Analyzer
	tokens   UnlockTokenIssuer
	policy   domain.EntitlementPolicy
	baseURL  string
	logger   *slog.Logger
}

// NewScanService creates a new ScanService.
func NewScanService(
	store repository.Store,
	usage UsageService,
	analyzer Analyzer,
	tokens UnlockTokenIssuer,
	policy domain.EntitlementPolicy,
	cfg ScanServiceConfig,
	logger *slog.Logger,
) ScanService {
	return &scanService{
		store:    store,
		usage:    usage,
		analyzer: analyzer,
		tokens:   tokens,
		policy:   policy,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		logger:   logger,
	}
}

// =============================================================================
// Submit
// =============================================================================

// Submit runs the pipeline: screen, entitlement, analyze, persist, count.
func (s *scanService) Submit(ctx context.Context, params domain.SubmitScanParams) (*domain.SubmitResult, error) {
	const op = "scan.submit"

	in := ai.AnalyzeInput{Messages: params.Messages, Context: params.Context}

	// Validation and safety never consume usage or reach the provider
	if err := s.analyzer.Screen(in); err != nil {
		if domain.ErrorCode(err) == domain.ESAFETY {
			metrics.ScanOutcome("safety_blocked")
		} else {
			metrics.ScanOutcome("invalid")
		}
		return nil, err
	}

	ent, err := s.usage.Authorize(ctx, params.Viewer)
	if err != nil {
		metrics.ScanOutcome("error")
		return nil, err
	}
	if !ent.Allowed {
		metrics.ScanOutcome("daily_limit")
		return &domain.SubmitResult{
			Accepted:       false,
			DenialReason:   ent.DenialReason,
			ScansRemaining: 0,
		}, nil
	}

	analysis, err := s.analyzer.Analyze(ctx, in)
	if err != nil {
		metrics.ScanOutcome("upstream_error")
		s.logger.Error("scan analysis failed", "error", err, "context", params.Context)
		return nil, domain.Upstream(err, op)
	}

	var owner uuid.NullUUID
	if params.Viewer != nil {
		owner = uuid.NullUUID{UUID: params.Viewer.ID, Valid: true}
	}

	record, err := s.persist(ctx, domain.CreateScanParams{
		OwnerID:  owner,
		Context:  params.Context,
		Messages: params.Messages,
		Result:   analysis.Result,
		Unlocked: ent.UnlockAtCreation,
		ClientIP: params.ClientIP,
	})
	if err != nil {
		metrics.ScanOutcome("error")
		return nil, domain.Internal(err, op, "failed to save scan")
	}

	result := &domain.SubmitResult{
		Accepted:       true,
		ScanID:         record.ID,
		ShareURL:       s.shareURL(record.ID),
		Score:          record.Score,
		CapTier:        domain.CapTierFor(record.Score),
		Unlocked:       record.Unlocked,
		ScansRemaining: -1,
	}
	if ent.Ledger != nil {
		result.ScansRemaining = s.policy.Remaining(ent.Ledger.RecordScan())
	}

	if record.Unlocked {
		full := record.Result()
		result.Result = &full

		token, err := s.tokens.Issue(record.ID)
		if err != nil {
			// Still unlocked on the record; the client just gets no capability
			s.logger.Error("failed to issue unlock token", "error", err, "scan_id", record.ID)
		} else {
			result.UnlockToken = token
		}
	}

	metrics.ScanOutcome("accepted")
	s.logger.Info("scan created",
		"scan_id", record.ID,
		"context", record.Context,
		"score", record.Score,
		"unlocked", record.Unlocked,
		"provider", analysis.Provider,
		"anonymous", params.Viewer == nil,
	)

	return result, nil
}

// persist writes the scan and, for an owned scan, bumps the owner's
// counters in the same transaction. Usage is counted only once the record
// exists.
func (s *scanService) persist(ctx context.Context, params domain.CreateScanParams) (*domain.ScanRecord, error) {
	signals, err := json.Marshal(params.Result.Signals)
	if err != nil {
		return nil, fmt.Errorf("encode signals: %w", err)
	}

	var row repository.Scan
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		row, err = q.CreateScan(ctx, repository.CreateScanParams{
			UserID:        params.OwnerID,
			Context:       string(params.Context),
			Score:         int32(params.Result.Score),
			VerdictTitle:  params.Result.Verdict.Title,
			VerdictBody:   params.Result.Verdict.Body,
			Signals:       signals,
			InputMessages: params.Messages,
			IpAddress:     toInet(params.ClientIP),
			Unlocked:      params.Unlocked,
		})
		if err != nil {
			return fmt.Errorf("create scan: %w", err)
		}

		if params.OwnerID.Valid {
			if _, err := q.IncrementScanCounts(ctx, params.OwnerID.UUID); err != nil {
				return fmt.Errorf("increment scan counts: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return scanToRecord(row)
}

func (s *scanService) shareURL(id uuid.UUID) string {
	return s.baseURL + "/result/" + id.String()
}

// getScan loads one scan by id.
// Returns domain.ENOTFOUND if the scan does not exist.
func getScan(ctx context.Context, q repository.Querier, id uuid.UUID, op string) (*domain.ScanRecord, error) {
	row, err := q.GetScan(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "scan", id.String())
		}
		return nil, domain.Internal(err, op, "failed to get scan")
	}

	rec, err := scanToRecord(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode scan")
	}
	return rec, nil
}

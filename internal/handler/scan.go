// Package handler contains the JSON HTTP handlers.
//
// This file implements the scan endpoints.
//
// Routes:
//   - POST /api/scans      -> Submit
//   - GET  /api/scans/{id} -> View
package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/nocap/internal/auth"
	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/DukeRupert/nocap/internal/service"
	"github.com/google/uuid"
)

// UnlockTokenHeader carries a just-unlocked capability as an alternative to
// the unlock_token query parameter.
const UnlockTokenHeader = "X-Unlock-Token"

// ScanHandler serves scan submission and viewing.
type ScanHandler struct {
	scans      service.ScanService
	unlock     service.UnlockService
	dailyLimit int
	logger     *slog.Logger
}

// NewScanHandler creates a new ScanHandler. dailyLimit is only used in the
// denial message.
func NewScanHandler(scans service.ScanService, unlock service.UnlockService, dailyLimit int, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{
		scans:      scans,
		unlock:     unlock,
		dailyLimit: dailyLimit,
		logger:     logger,
	}
}

// =============================================================================
// Request / Response Types
// =============================================================================

// SubmitScanRequest is the body of POST /api/scans.
type SubmitScanRequest struct {
	Messages []string `json:"messages"`
	Context  string   `json:"context"`
}

// SubmitScanResponse is returned for an accepted scan. Result and
// UnlockToken are only present when the scan was unlocked at creation.
type SubmitScanResponse struct {
	ScanID         string                 `json:"scanId"`
	Score          int                    `json:"score"`
	CapTier        domain.CapTier         `json:"capTier"`
	Unlocked       bool                   `json:"unlocked"`
	ShareURL       string                 `json:"shareUrl"`
	ScansRemaining *int                   `json:"scansRemaining,omitempty"`
	UnlockToken    string                 `json:"unlockToken,omitempty"`
	Result         *domain.AnalysisResult `json:"result,omitempty"`
}

// ScanViewResponse is a scan as one viewer may see it.
type ScanViewResponse struct {
	ScanID       string                 `json:"scanId"`
	State        domain.ViewState       `json:"state"`
	UnlockSource domain.UnlockSource    `json:"unlockSource,omitempty"`
	Context      domain.ScanContext     `json:"context"`
	Score        int                    `json:"score"`
	CapTier      domain.CapTier         `json:"capTier"`
	NextTier     *domain.CapTier        `json:"nextTier,omitempty"`
	Result       *domain.AnalysisResult `json:"result,omitempty"`
}

// =============================================================================
// POST /api/scans
// =============================================================================

// Submit runs a scan for the (optional) viewer.
func (h *ScanHandler) Submit(w http.ResponseWriter, r *http.Request) {
	const op = "handler.scan.submit"

	var req SubmitScanRequest
	if err := decodeJSON(w, r, &req, op); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.scans.Submit(r.Context(), domain.SubmitScanParams{
		Messages: req.Messages,
		Context:  domain.ScanContext(req.Context),
		Viewer:   auth.GetViewerFromRequest(r),
		ClientIP: ClientIP(r),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if !result.Accepted {
		DailyLimitResponse(w, h.dailyLimit)
		return
	}

	resp := SubmitScanResponse{
		ScanID:      result.ScanID.String(),
		Score:       result.Score,
		CapTier:     result.CapTier,
		Unlocked:    result.Unlocked,
		ShareURL:    result.ShareURL,
		UnlockToken: result.UnlockToken,
		Result:      result.Result,
	}
	if result.ScansRemaining >= 0 {
		remaining := result.ScansRemaining
		resp.ScansRemaining = &remaining
	}

	writeJSON(w, http.StatusCreated, resp)
}

// =============================================================================
// GET /api/scans/{id}
// =============================================================================

// View returns the scan, locked or unlocked for this viewer.
func (h *ScanHandler) View(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	token := r.URL.Query().Get("unlock_token")
	if token == "" {
		token = r.Header.Get(UnlockTokenHeader)
	}

	view, err := h.unlock.View(r.Context(), domain.ViewRequest{
		ScanID:            id,
		Viewer:            auth.GetViewerFromRequest(r),
		UnlockToken:       token,
		CheckoutSessionID: r.URL.Query().Get("checkout_session_id"),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	resp := ScanViewResponse{
		ScanID:       view.ScanID,
		State:        view.State,
		UnlockSource: view.Source,
		Context:      view.Context,
		Score:        view.Score,
		CapTier:      view.CapTier,
		Result:       view.Result,
	}
	if next, ok := domain.NextCapTier(view.Score); ok {
		resp.NextTier = &next
	}

	// Locked and unlocked bodies differ per viewer
	w.Header().Set("Cache-Control", "private, no-store")
	writeJSON(w, http.StatusOK, resp)
}

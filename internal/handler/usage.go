package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/nocap/internal/auth"
	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/DukeRupert/nocap/internal/service"
)

// UsageHandler reports the viewer's daily scan usage.
type UsageHandler struct {
	usage  service.UsageService
	logger *slog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(usage service.UsageService, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		usage:  usage,
		logger: logger,
	}
}

// UsageResponse is the body of GET /api/me/usage. Limit and Remaining are
// -1 for Pro.
type UsageResponse struct {
	Tier       domain.Tier `json:"tier"`
	ScansToday int         `json:"scansToday"`
	TotalScans int         `json:"totalScans"`
	Limit      int         `json:"limit"`
	Remaining  int         `json:"remaining"`
	ResetsAt   time.Time   `json:"resetsAt"`
}

// Get handles GET /api/me/usage.
func (h *UsageHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.usage.GetUsage(r.Context(), auth.GetViewerFromRequest(r))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	writeJSON(w, http.StatusOK, UsageResponse{
		Tier:       snap.Ledger.Tier,
		ScansToday: snap.Ledger.ScansToday,
		TotalScans: snap.Ledger.TotalScans,
		Limit:      snap.Limit,
		Remaining:  snap.Remaining,
		ResetsAt:   snap.ResetsAt,
	})
}

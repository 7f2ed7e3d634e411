package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/nocap/internal/auth"
	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/DukeRupert/nocap/internal/service"
	"github.com/google/uuid"
)

// CheckoutHandler starts payment flows.
type CheckoutHandler struct {
	billing service.BillingService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(billing service.BillingService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		billing: billing,
		logger:  logger,
	}
}

// CheckoutRequest is the body of POST /api/checkout.
type CheckoutRequest struct {
	Plan   string `json:"plan"`
	ScanID string `json:"scanId"`
}

// CheckoutResponse points the client at the hosted checkout page.
type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// Create handles POST /api/checkout.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handler.checkout.create"

	var req CheckoutRequest
	if err := decodeJSON(w, r, &req, op); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var scanID uuid.UUID
	if s := strings.TrimSpace(req.ScanID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid scanId"))
			return
		}
		scanID = id
	}

	sess, err := h.billing.CreateCheckout(r.Context(), domain.CheckoutRequest{
		Plan:   domain.Plan(req.Plan),
		ScanID: scanID,
		Viewer: auth.GetViewerFromRequest(r),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckoutResponse{
		SessionID: sess.ID,
		URL:       sess.URL,
	})
}

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/nocap/internal/domain"
)

// JSONError is the body of every API error except the daily-limit denial.
type JSONError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields,omitempty"`
	} `json:"error"`
}

var statusByCode = map[string]int{
	domain.EINVALID:      http.StatusBadRequest,
	domain.EUNAUTHORIZED: http.StatusUnauthorized,
	domain.ENOTFOUND:     http.StatusNotFound,
	domain.ESAFETY:       http.StatusUnprocessableEntity,
	domain.ERATELIMIT:    http.StatusTooManyRequests,
	domain.EINTERNAL:     http.StatusInternalServerError,
	domain.EUPSTREAM:     http.StatusBadGateway,
	domain.EUNAVAILABLE:  http.StatusServiceUnavailable,
}

// StatusForCode maps a domain error code to its HTTP status. Unknown codes
// are treated as internal errors.
func StatusForCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorResponse writes err as JSON. Only the code, the public message and
// any validation fields reach the client; the op and cause are logged.
func ErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var body JSONError

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		logger.Info("validation error", "op", ve.Op, "field_count", len(ve.Fields), "path", r.URL.Path)
		body.Error.Code = domain.EINVALID
		body.Error.Message = ve.Error()
		body.Error.Fields = ve.Fields
		writeJSON(w, http.StatusBadRequest, body)
		return
	}

	code := domain.ErrorCode(err)
	status := StatusForCode(code)

	attrs := []any{
		"error", err.Error(),
		"code", code,
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
	}
	if op := domain.ErrorOp(err); op != "" {
		attrs = append(attrs, "op", op)
	}
	if status >= http.StatusInternalServerError {
		logger.Error("server error", attrs...)
	} else {
		logger.Info("client error", attrs...)
	}

	body.Error.Code = code
	body.Error.Message = domain.ErrorMessage(err)
	writeJSON(w, status, body)
}

// UnauthorizedResponse writes a 401 for a route that needs a signed-in viewer.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ErrorResponse(w, r, logger, domain.Errorf(domain.EUNAUTHORIZED, "", "Authentication required"))
}

// NotFoundResponse writes a 404.
func NotFoundResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ErrorResponse(w, r, logger, domain.Errorf(domain.ENOTFOUND, "", "The requested resource was not found"))
}

// DailyLimitBody is the 429 body sent when a free user is out of scans.
type DailyLimitBody struct {
	Error      string `json:"error"`
	Upgrade    bool   `json:"upgrade"`
	UpgradeURL string `json:"upgrade_url"`
	Message    string `json:"message"`
}

// DailyLimitResponse writes the daily-limit denial with its upgrade prompt.
func DailyLimitResponse(w http.ResponseWriter, limit int) {
	writeJSON(w, http.StatusTooManyRequests, DailyLimitBody{
		Error:      string(domain.DenialDailyLimit),
		Upgrade:    true,
		UpgradeURL: "/pricing",
		Message:    fmt.Sprintf("🚨 You hit your %d scans/day limit. Go Pro for unlimited scans!", limit),
	})
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Error Response Tests
// =============================================================================

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ESAFETY, http.StatusUnprocessableEntity},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{domain.EUPSTREAM, http.StatusBadGateway},
		{domain.EUNAVAILABLE, http.StatusServiceUnavailable},
		{"something_else", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusForCode(tt.code))
		})
	}
}

func TestErrorResponse_ValidationDoesNotExposeOperationName(t *testing.T) {
	ve := domain.NewValidationError("ai.screen", "messages", "Maximum 10 messages allowed")

	req := httptest.NewRequest(http.MethodPost, "/api/scans", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, discardLogger(), ve)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "ai.screen")

	var body JSONError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.EINVALID, body.Error.Code)
	assert.Equal(t, "Maximum 10 messages allowed", body.Error.Fields["messages"])
}

func TestErrorResponse_InternalErrorHidesDetails(t *testing.T) {
	err := domain.Internal(errors.New("pq: relation \"scans\" does not exist"), "scan.submit", "failed to save scan")

	req := httptest.NewRequest(http.MethodPost, "/api/scans", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, discardLogger(), err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "relation")
	assert.NotContains(t, body, "scan.submit")
	assert.Contains(t, body, "internal error")
}

func TestErrorResponse_UpstreamIsGeneric(t *testing.T) {
	err := domain.Upstream(errors.New("anthropic: 529 overloaded"), "scan.submit")

	req := httptest.NewRequest(http.MethodPost, "/api/scans", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, discardLogger(), err)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "overloaded")
}

func TestErrorResponse_UnwrappedErrorReturnsGeneric(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/scans/x", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, discardLogger(), errors.New("dial tcp 10.0.0.3:5432: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestDailyLimitResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	DailyLimitResponse(rec, 3)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body DailyLimitBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, DailyLimitBody{
		Error:      "daily_limit",
		Upgrade:    true,
		UpgradeURL: "/pricing",
		Message:    "🚨 You hit your 3 scans/day limit. Go Pro for unlimited scans!",
	}, body)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "198.51.100.4, 10.0.0.1"}, "10.0.0.1:443", "198.51.100.4"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.9 "}, "10.0.0.1:443", "198.51.100.9"},
		{"remote addr", nil, "192.0.2.10:5555", "192.0.2.10"},
		{"remote addr without port", nil, "192.0.2.11", "192.0.2.11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "", "Request body is required"},
		{"garbage", "{nope", "Invalid request body"},
		{"too large", `{"messages":["` + strings.Repeat("a", maxBodyBytes) + `"]}`, "Request body is too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/scans", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			var dst SubmitScanRequest
			err := decodeJSON(rec, req, &dst, "test")
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
			assert.Equal(t, tt.want, domain.ErrorMessage(err))
		})
	}
}

func TestNotFoundResponse(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/scans/8e1f", nil)
	rec := httptest.NewRecorder()
	NotFoundResponse(rec, req, discardLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body JSONError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.ENOTFOUND, body.Error.Code)
	assert.Equal(t, "The requested resource was not found", body.Error.Message)
}

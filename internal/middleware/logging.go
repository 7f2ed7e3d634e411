package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DukeRupert/nocap/internal/handler"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id. An id supplied by
// the proxy is kept when it is a sane length; otherwise one is generated.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 64

// RequestLoggingMiddleware writes one access-log line per request.
type RequestLoggingMiddleware struct {
	logger *slog.Logger
}

func NewRequestLoggingMiddleware(logger *slog.Logger) *RequestLoggingMiddleware {
	return &RequestLoggingMiddleware{logger: logger}
}

// Handler logs every request except /health and /metrics. Query
// values that grant access to a result are redacted.
func (m *RequestLoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		switch r.URL.Path {
		case "/health", "/metrics":
			next.ServeHTTP(w, r)
			return
		}

		started := time.Now()
		rec := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.statusCode >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		m.logger.Log(r.Context(), level, "request",
			"request_id", requestID,
			"method", r.Method,
			"path", sanitizePath(r.URL.Path, r.URL.RawQuery),
			"status", rec.statusCode,
			"duration_ms", time.Since(started).Milliseconds(),
			"ip", handler.ClientIP(r),
			"user_agent", r.UserAgent(),
		)
	})
}

// responseWriter keeps the first status code written.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// sensitiveParams are query parameters whose values never reach the logs.
// Unlock tokens and checkout session ids both grant access to a paid result.
var sensitiveParams = map[string]bool{
	"token":               true,
	"unlock_token":        true,
	"checkout_session_id": true,
	"session_id":          true,
	"code":                true,
	"key":                 true,
	"secret":              true,
	"api_key":             true,
	"apikey":              true,
	"access_token":        true,
	"refresh_token":       true,
}

// sanitizePath rebuilds path?query with sensitive values replaced and bare
// keys dropped.
func sanitizePath(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}

	var safeParts []string
	for _, part := range strings.Split(rawQuery, "&") {
		rawKey, _, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}

		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			key = rawKey
		}
		if sensitiveParams[strings.ToLower(key)] {
			safeParts = append(safeParts, rawKey+"=[REDACTED]")
		} else {
			safeParts = append(safeParts, part)
		}
	}

	if len(safeParts) == 0 {
		return path
	}
	return path + "?" + strings.Join(safeParts, "&")
}

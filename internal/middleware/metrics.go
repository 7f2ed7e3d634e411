package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/nocap/internal/auth"
)

// ScrapeCredentials are the secrets accepted on GET /metrics. Prometheus
// can present either basic auth or a bearer token (authorization.credentials
// in scrape_config). An empty value disables that scheme.
type ScrapeCredentials struct {
	Username    string
	Password    string
	BearerToken string
}

func (c ScrapeCredentials) basicEnabled() bool  { return c.Username != "" || c.Password != "" }
func (c ScrapeCredentials) bearerEnabled() bool { return c.BearerToken != "" }

// MetricsAuthMiddleware guards the scrape endpoint. Scan counters leak
// traffic volume, so production deployments configure at least one scheme.
type MetricsAuthMiddleware struct {
	creds  ScrapeCredentials
	logger *slog.Logger
}

// NewMetricsAuthMiddleware returns a guard for creds. With no credentials
// configured every scrape is allowed.
func NewMetricsAuthMiddleware(creds ScrapeCredentials, logger *slog.Logger) *MetricsAuthMiddleware {
	return &MetricsAuthMiddleware{creds: creds, logger: logger}
}

// Handler wraps the Prometheus handler.
func (m *MetricsAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.allowed(r) {
			next.ServeHTTP(w, r)
			return
		}

		m.logger.Debug("metrics scrape rejected", "remote_addr", r.RemoteAddr)
		if m.creds.basicEnabled() {
			w.Header().Set("WWW-Authenticate", `Basic realm="nocap metrics", charset="UTF-8"`)
		} else {
			w.Header().Set("WWW-Authenticate", `Bearer realm="nocap metrics"`)
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

func (m *MetricsAuthMiddleware) allowed(r *http.Request) bool {
	if !m.creds.basicEnabled() && !m.creds.bearerEnabled() {
		return true
	}

	if m.creds.bearerEnabled() {
		if token, ok := auth.ExtractBearerToken(r.Header.Get("Authorization")); ok && secretEqual(token, m.creds.BearerToken) {
			return true
		}
	}

	if m.creds.basicEnabled() {
		if user, pass, ok := r.BasicAuth(); ok {
			// Evaluate both so timing does not reveal which half matched.
			userOK := secretEqual(user, m.creds.Username)
			passOK := secretEqual(pass, m.creds.Password)
			return userOK && passOK
		}
	}

	return false
}

func secretEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

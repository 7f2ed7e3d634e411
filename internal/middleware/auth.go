// Package middleware contains HTTP middleware for the nocap API.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/nocap/internal/auth"
	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/DukeRupert/nocap/internal/handler"
)

// AccessTokenCookieName is the cookie browsers may carry the identity
// provider's access token in when no Authorization header is sent.
const AccessTokenCookieName = "nocap_access_token"

// TokenVerifier turns an access token into a viewer. *auth.Verifier implements it.
type TokenVerifier interface {
	Verify(token string) (*domain.Viewer, error)
}

// =============================================================================
// Auth Middleware Configuration
// =============================================================================

// AuthMiddleware resolves the viewer from the request's access token.
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(verifier TokenVerifier, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}

// =============================================================================
// WithViewer Middleware
// =============================================================================

// WithViewer loads the viewer from a bearer token, falling back to the
// access-token cookie, and stores it in the request context. Requests with
// no token or an invalid one continue anonymously: every scan route works
// without an account.
//
// The viewer can be retrieved in handlers using:
//
//	viewer := auth.GetViewerFromRequest(r)
func (m *AuthMiddleware) WithViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if !ok {
			if cookie, err := r.Cookie(AccessTokenCookieName); err == nil && cookie.Value != "" {
				token, ok = cookie.Value, true
			}
		}
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		viewer, err := m.verifier.Verify(token)
		if err != nil {
			m.logger.Debug("access token rejected", "error", err, "path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		ctx := auth.SetViewer(r.Context(), viewer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// =============================================================================
// RequireViewer Middleware
// =============================================================================

// RequireViewer rejects anonymous requests with 401. It must run after
// WithViewer.
func (m *AuthMiddleware) RequireViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetViewerFromRequest(r) == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Middleware Stack Helper
// =============================================================================

// Stack composes middlewares so the first one listed runs first.
//
//	requireViewer := middleware.Stack(authMw.WithViewer, authMw.RequireViewer)
//	mux.Handle("POST /api/checkout", requireViewer(http.HandlerFunc(checkout.Create)))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

var (
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).WithViewer
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireViewer
)

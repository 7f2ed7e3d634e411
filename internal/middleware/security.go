package middleware

import (
	"net/http"
)

// apiCSP locks down everything: the API only ever returns JSON.
const apiCSP = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'"

// hstsValue is sent only when the server sits behind TLS.
const hstsValue = "max-age=31536000; includeSubDomains"

var securityHeaders = [][2]string{
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	// Result URLs carry checkout session ids and unlock tokens.
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", apiCSP},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
	{"Cross-Origin-Resource-Policy", "same-site"},
}

// SecurityHeadersMiddleware sets the response headers every API reply carries.
type SecurityHeadersMiddleware struct {
	isSecure bool
}

// NewSecurityHeadersMiddleware returns the middleware. isSecure adds HSTS and
// is true outside development.
func NewSecurityHeadersMiddleware(isSecure bool) *SecurityHeadersMiddleware {
	return &SecurityHeadersMiddleware{isSecure: isSecure}
}

func (m *SecurityHeadersMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityHeaders {
			h.Set(kv[0], kv[1])
		}
		if m.isSecure {
			h.Set("Strict-Transport-Security", hstsValue)
		}
		next.ServeHTTP(w, r)
	})
}

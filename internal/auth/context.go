// Package auth provides viewer identity helpers.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/DukeRupert/nocap/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// viewerContextKey is the key used to store the authenticated viewer in context.
	viewerContextKey contextKey = "viewer"
)

// GetViewer retrieves the authenticated viewer from the context.
//
// Returns nil if the request is anonymous.
//
// Usage:
//
//	viewer := auth.GetViewer(r.Context())
//	if viewer == nil {
//	    // Handle anonymous request
//	}
func GetViewer(ctx context.Context) *domain.Viewer {
	viewer, ok := ctx.Value(viewerContextKey).(*domain.Viewer)
	if !ok {
		return nil
	}
	return viewer
}

// GetViewerFromRequest retrieves the authenticated viewer from the request context.
func GetViewerFromRequest(r *http.Request) *domain.Viewer {
	return GetViewer(r.Context())
}

// SetViewer stores a viewer in the context.
//
// This is typically called by authentication middleware after verifying
// the identity provider's token.
func SetViewer(ctx context.Context, viewer *domain.Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey, viewer)
}

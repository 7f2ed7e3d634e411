package domain

import "github.com/google/uuid"

// Viewer is the authenticated caller as reported by the identity provider.
// A nil *Viewer means the request is anonymous.
type Viewer struct {
	ID    uuid.UUID
	Email string
}

package domain

import "github.com/google/uuid"

// ViewState is what a viewer is allowed to see of a scan.
type ViewState string

const (
	ViewLocked   ViewState = "LOCKED"
	ViewUnlocked ViewState = "UNLOCKED"
)

// UnlockSource records which rule granted visibility.
type UnlockSource string

const (
	UnlockSourceNone        UnlockSource = ""
	UnlockSourceProViewer   UnlockSource = "pro_viewer"
	UnlockSourceRecord      UnlockSource = "record"
	UnlockSourcePayment     UnlockSource = "payment"
	UnlockSourceJustCreated UnlockSource = "just_created"
)

// ViewInputs are the per-request facts the unlock rules look at.
type ViewInputs struct {
	Authenticated bool
	ViewerTier    Tier

	// PaymentVerified is true only when a payment-completion signal for this
	// scan and this viewer has been verified server-side.
	PaymentVerified bool

	// JustUnlocked is true when the request carries a valid capability
	// issued right after a Pro scan was created.
	JustUnlocked bool
}

// ViewDecision is the result of ResolveView.
type ViewDecision struct {
	State  ViewState
	Source UnlockSource

	// Persist is true when the record's stored flag must flip false->true.
	Persist bool
}

// ResolveView applies the unlock rules in precedence order; the first match wins.
//
//  1. authenticated Pro viewer
//  2. record already unlocked
//  3. authenticated viewer with a verified payment signal (persisted)
//  4. just-unlocked capability
//  5. locked
func ResolveView(record *ScanRecord, in ViewInputs) ViewDecision {
	switch {
	case in.Authenticated && in.ViewerTier == TierPro:
		return ViewDecision{State: ViewUnlocked, Source: UnlockSourceProViewer}
	case record.Unlocked:
		return ViewDecision{State: ViewUnlocked, Source: UnlockSourceRecord}
	case in.Authenticated && in.PaymentVerified:
		return ViewDecision{State: ViewUnlocked, Source: UnlockSourcePayment, Persist: true}
	case in.JustUnlocked:
		return ViewDecision{State: ViewUnlocked, Source: UnlockSourceJustCreated}
	default:
		return ViewDecision{State: ViewLocked}
	}
}

// ScanView is a scan as shown to one viewer. Result is nil while locked.
type ScanView struct {
	ScanID  string
	State   ViewState
	Source  UnlockSource
	Context ScanContext
	Score   int
	CapTier CapTier
	Result  *AnalysisResult
}

// ViewRequest is one attempt to look at a scan.
type ViewRequest struct {
	ScanID            uuid.UUID
	Viewer            *Viewer // nil when anonymous
	UnlockToken       string
	CheckoutSessionID string
}

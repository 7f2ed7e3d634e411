// Package domain contains core business types and rules.
//
// This file defines scan records: one persisted analysis request and its
// result, plus the unlock flag that the paywall flips.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message bounds for a single scan.
const (
	MinScanMessages = 1
	MaxScanMessages = 10
)

// SignalsPerResult is the exact number of signals an analysis must carry.
const SignalsPerResult = 3

// ScanContext is the relationship the chat excerpt comes from.
type ScanContext string

const (
	ContextDating ScanContext = "dating"
	ContextFriend ScanContext = "friend"
	ContextWork   ScanContext = "work"
	ContextFamily ScanContext = "family"
)

// ScanContexts lists every accepted context in display order.
var ScanContexts = []ScanContext{ContextDating, ContextFriend, ContextWork, ContextFamily}

// Valid reports whether c is one of the known contexts.
func (c ScanContext) Valid() bool {
	switch c {
	case ContextDating, ContextFriend, ContextWork, ContextFamily:
		return true
	default:
		return false
	}
}

// Severity grades a single signal.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}

// Signal is one pattern the analysis picked up on.
type Signal struct {
	Emoji       string   `json:"emoji"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Verdict is the headline judgment of a scan.
type Verdict struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// AnalysisResult is the normalized output of the analysis backend.
type AnalysisResult struct {
	Score   int      `json:"score"`
	Signals []Signal `json:"signals"`
	Verdict Verdict  `json:"verdict"`
}

// ScanRecord is one persisted analysis request/response pair.
type ScanRecord struct {
	ID            uuid.UUID
	OwnerID       uuid.NullUUID
	Context       ScanContext
	Score         int
	VerdictTitle  string
	VerdictBody   string
	Signals       []Signal
	InputMessages []string
	Unlocked      bool
	UnlockedAt    *time.Time
	ClientIP      string
	CreatedAt     time.Time
}

// IsOwnedBy returns true if the scan was created by userID.
func (s *ScanRecord) IsOwnedBy(userID uuid.UUID) bool {
	return s.OwnerID.Valid && s.OwnerID.UUID == userID
}

// Result returns the full analysis stored on the record.
func (s *ScanRecord) Result() AnalysisResult {
	return AnalysisResult{
		Score:   s.Score,
		Signals: s.Signals,
		Verdict: Verdict{Title: s.VerdictTitle, Body: s.VerdictBody},
	}
}

// MarkUnlocked performs the one-way false->true transition. It returns false
// when the record was already unlocked, leaving UnlockedAt untouched.
func (s *ScanRecord) MarkUnlocked(now time.Time) bool {
	if s.Unlocked {
		return false
	}
	s.Unlocked = true
	s.UnlockedAt = &now
	return true
}

// CreateScanParams contains everything needed to persist a new scan.
type CreateScanParams struct {
	OwnerID  uuid.NullUUID
	Context  ScanContext
	Messages []string
	Result   AnalysisResult
	Unlocked bool
	ClientIP string
}

// SubmitScanParams is one scan request as received from a caller.
type SubmitScanParams struct {
	Messages []string
	Context  ScanContext
	Viewer   *Viewer // nil when anonymous
	ClientIP string
}

// SubmitResult is the outcome of a scan submission that did not fail.
// A daily-limit denial is a result with Accepted=false, not an error.
type SubmitResult struct {
	Accepted     bool
	DenialReason DenialReason

	ScanID      uuid.UUID
	ShareURL    string
	Score       int
	CapTier     CapTier
	Unlocked    bool
	UnlockToken string          // set only when Unlocked
	Result      *AnalysisResult // set only when Unlocked

	// ScansRemaining is -1 for unlimited and for anonymous callers.
	ScansRemaining int
}

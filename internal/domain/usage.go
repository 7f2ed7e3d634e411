// Package domain contains core business types and rules.
//
// This file defines the per-user usage ledger and the entitlement rules that
// gate scan submission. Everything here is pure: persistence is the service
// layer's job.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tier is the subscription level of a registered user.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPro
}

// DefaultFreeDailyScans is the number of scans a free user may run per calendar day.
const DefaultFreeDailyScans = 3

// DenialReason explains why an entitlement check refused a scan.
type DenialReason string

const (
	DenialNone       DenialReason = ""
	DenialDailyLimit DenialReason = "daily_limit"
)

// UsageLedger is the per-user counter record.
//
// ScansToday is only meaningful relative to LastScanReset: the reset is lazy,
// so a stored ledger may carry yesterday's count until the next access.
type UsageLedger struct {
	UserID        uuid.UUID
	Email         string
	Tier          Tier
	ScansToday    int
	LastScanReset time.Time
	TotalScans    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsPro returns true if the ledger belongs to a paying subscriber.
func (l UsageLedger) IsPro() bool {
	return l.Tier == TierPro
}

// ResetIfDue returns the ledger as it should look at now. The boolean is true
// when the daily counter rolled over and the new snapshot must be written.
func (l UsageLedger) ResetIfDue(now time.Time, loc *time.Location) (UsageLedger, bool) {
	if SameCalendarDay(l.LastScanReset, now, loc) {
		return l, false
	}
	l.ScansToday = 0
	l.LastScanReset = now
	return l, true
}

// RecordScan counts one successful analysis.
func (l UsageLedger) RecordScan() UsageLedger {
	l.ScansToday++
	l.TotalScans++
	return l
}

// SameCalendarDay compares the dates of a and b in loc (UTC when nil).
func SameCalendarDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// Entitlement is the outcome of evaluating a scan request against a ledger.
type Entitlement struct {
	Allowed          bool
	MustReset        bool
	NewCount         int // effective scansToday after any reset, before this scan
	UnlockAtCreation bool
	DenialReason     DenialReason

	// Ledger is the post-reset snapshot; nil for anonymous callers.
	Ledger *UsageLedger
}

// EntitlementPolicy holds the knobs of the entitlement rules.
type EntitlementPolicy struct {
	FreeDailyScans int
	Location       *time.Location
}

// DefaultEntitlementPolicy returns the production policy: 3 free scans per UTC day.
func DefaultEntitlementPolicy() EntitlementPolicy {
	return EntitlementPolicy{
		FreeDailyScans: DefaultFreeDailyScans,
		Location:       time.UTC,
	}
}

// Evaluate decides whether a scan may run. A nil ledger means the caller is
// anonymous: always allowed, never unlocked at creation.
//
// The reset is applied before the limit check, so a free user who hit the
// cap yesterday is allowed again today.
func (p EntitlementPolicy) Evaluate(ledger *UsageLedger, now time.Time) Entitlement {
	if ledger == nil {
		return Entitlement{Allowed: true}
	}

	current, mustReset := ledger.ResetIfDue(now, p.Location)
	ent := Entitlement{
		Allowed:          true,
		MustReset:        mustReset,
		NewCount:         current.ScansToday,
		UnlockAtCreation: current.IsPro(),
		Ledger:           &current,
	}

	if !current.IsPro() && current.ScansToday >= p.FreeDailyScans {
		ent.Allowed = false
		ent.DenialReason = DenialDailyLimit
	}
	return ent
}

// Remaining returns how many scans the ledger has left today, or -1 for unlimited.
func (p EntitlementPolicy) Remaining(l UsageLedger) int {
	if l.IsPro() {
		return -1
	}
	left := p.FreeDailyScans - l.ScansToday
	if left < 0 {
		return 0
	}
	return left
}

// NextReset returns the start of the calendar day following l.LastScanReset.
func (p EntitlementPolicy) NextReset(l UsageLedger) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	t := l.LastScanReset.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
}

// UsageSnapshot is a ledger as of now, for display.
type UsageSnapshot struct {
	Ledger    UsageLedger
	Limit     int // -1 for unlimited
	Remaining int // -1 for unlimited
	ResetsAt  time.Time
}

// Snapshot applies any due reset to l without persisting it.
func (p EntitlementPolicy) Snapshot(l UsageLedger, now time.Time) UsageSnapshot {
	current, _ := l.ResetIfDue(now, p.Location)
	limit := p.FreeDailyScans
	if current.IsPro() {
		limit = -1
	}
	return UsageSnapshot{
		Ledger:    current,
		Limit:     limit,
		Remaining: p.Remaining(current),
		ResetsAt:  p.NextReset(current),
	}
}

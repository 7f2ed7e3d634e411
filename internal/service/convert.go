package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/DukeRupert/nocap/internal/repository"
	"github.com/sqlc-dev/pqtype"
)

func profileToLedger(p repository.Profile) domain.UsageLedger {
	return domain.UsageLedger{
		UserID:        p.ID,
		Email:         p.Email,
		Tier:          domain.Tier(p.Tier),
		ScansToday:    int(p.ScansToday),
		LastScanReset: p.LastScanReset,
		TotalScans:    int(p.TotalScans),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// scanToRecord converts a row to a domain record. Signals that fail to
// decode are an internal error: the column is only ever written by CreateScan.
func scanToRecord(row repository.Scan) (*domain.ScanRecord, error) {
	var signals []domain.Signal
	if len(row.Signals) > 0 {
		if err := json.Unmarshal(row.Signals, &signals); err != nil {
			return nil, fmt.Errorf("decode signals for scan %s: %w", row.ID, err)
		}
	}

	rec := &domain.ScanRecord{
		ID:            row.ID,
		OwnerID:       row.UserID,
		Context:       domain.ScanContext(row.Context),
		Score:         int(row.Score),
		VerdictTitle:  row.VerdictTitle,
		VerdictBody:   row.VerdictBody,
		Signals:       signals,
		InputMessages: row.InputMessages,
		Unlocked:      row.Unlocked,
		CreatedAt:     row.CreatedAt,
	}
	if row.UnlockedAt.Valid {
		t := row.UnlockedAt.Time
		rec.UnlockedAt = &t
	}
	if row.IpAddress.Valid {
		rec.ClientIP = row.IpAddress.IPNet.IP.String()
	}
	return rec, nil
}

// toInet turns a textual client address into an INET value. Unparseable
// addresses are stored as NULL.
func toInet(addr string) pqtype.Inet {
	ip := net.ParseIP(addr)
	if ip == nil {
		return pqtype.Inet{}
	}
	bits := 128
	if v4 := ip.To4(); v4 != nil {
		ip, bits = v4, 32
	}
	return pqtype.Inet{
		IPNet: net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)},
		Valid: true,
	}
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

package service

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/DukeRupert/nocap/internal/repository"
	"github.com/google/uuid"
)

// fakeStore is an in-memory repository.Store. ExecTx restores the previous
// state when fn fails. Set the XxxErr fields to inject failures.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	profiles map[uuid.UUID]repository.Profile
	scans    map[uuid.UUID]repository.Scan
	events   map[string]repository.PaymentEvent

	now func() time.Time

	CreateScanErr error
	IncrementErr  error
	GetProfileErr error

	createScanCalls int
	resetCalls      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: map[uuid.UUID]repository.Profile{},
		scans:    map[uuid.UUID]repository.Scan{},
		events:   map[string]repository.PaymentEvent{},
		now:      time.Now,
	}
}

var _ repository.Store = (*fakeStore)(nil)

func (f *fakeStore) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	profiles, scans, events := maps.Clone(f.profiles), maps.Clone(f.scans), maps.Clone(f.events)
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.profiles, f.scans, f.events = profiles, scans, events
		f.mu.Unlock()
		return err
	}
	return nil
}

// putProfile seeds a profile.
func (f *fakeStore) putProfile(p repository.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = p
}

func (f *fakeStore) profile(id uuid.UUID) (repository.Profile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	return p, ok
}

func (f *fakeStore) scan(id uuid.UUID) (repository.Scan, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scans[id]
	return s, ok
}

func (f *fakeStore) scanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scans)
}

func (f *fakeStore) CreateScan(ctx context.Context, arg repository.CreateScanParams) (repository.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createScanCalls++
	if f.CreateScanErr != nil {
		return repository.Scan{}, f.CreateScanErr
	}
	s := repository.Scan{
		ID:            uuid.New(),
		UserID:        arg.UserID,
		Context:       arg.Context,
		Score:         arg.Score,
		VerdictTitle:  arg.VerdictTitle,
		VerdictBody:   arg.VerdictBody,
		Signals:       arg.Signals,
		InputMessages: arg.InputMessages,
		IpAddress:     arg.IpAddress,
		Unlocked:      arg.Unlocked,
		CreatedAt:     f.now(),
	}
	f.scans[s.ID] = s
	return s, nil
}

func (f *fakeStore) GetPaymentEvent(ctx context.Context, sessionID string) (repository.PaymentEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[sessionID]
	if !ok {
		return repository.PaymentEvent{}, sql.ErrNoRows
	}
	return e, nil
}

func (f *fakeStore) GetProfile(ctx context.Context, id uuid.UUID) (repository.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetProfileErr != nil {
		return repository.Profile{}, f.GetProfileErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return repository.Profile{}, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) GetProfileForUpdate(ctx context.Context, id uuid.UUID) (repository.Profile, error) {
	return f.GetProfile(ctx, id)
}

func (f *fakeStore) GetScan(ctx context.Context, id uuid.UUID) (repository.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scans[id]
	if !ok {
		return repository.Scan{}, sql.ErrNoRows
	}
	return s, nil
}

func (f *fakeStore) IncrementScanCounts(ctx context.Context, id uuid.UUID) (repository.IncrementScanCountsRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.IncrementErr != nil {
		return repository.IncrementScanCountsRow{}, f.IncrementErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return repository.IncrementScanCountsRow{}, sql.ErrNoRows
	}
	p.ScansToday++
	p.TotalScans++
	f.profiles[id] = p
	return repository.IncrementScanCountsRow{ScansToday: p.ScansToday, TotalScans: p.TotalScans}, nil
}

func (f *fakeStore) InsertPaymentEvent(ctx context.Context, arg repository.InsertPaymentEventParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[arg.SessionID]; ok {
		return 0, nil
	}
	f.events[arg.SessionID] = repository.PaymentEvent{
		SessionID:  arg.SessionID,
		UserID:     arg.UserID,
		ScanID:     arg.ScanID,
		Plan:       arg.Plan,
		Source:     arg.Source,
		RecordedAt: f.now(),
	}
	return 1, nil
}

func (f *fakeStore) InsertProfile(ctx context.Context, arg repository.InsertProfileParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[arg.ID]; ok {
		return nil
	}
	now := f.now()
	f.profiles[arg.ID] = repository.Profile{
		ID:            arg.ID,
		Email:         arg.Email,
		Tier:          "free",
		LastScanReset: arg.LastScanReset,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return nil
}

func (f *fakeStore) MarkScanUnlocked(ctx context.Context, arg repository.MarkScanUnlockedParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scans[arg.ID]
	if !ok || s.Unlocked {
		return 0, nil
	}
	s.Unlocked = true
	s.UnlockedAt = sql.NullTime{Time: arg.UnlockedAt, Valid: true}
	f.scans[arg.ID] = s
	return 1, nil
}

func (f *fakeStore) ResetDailyScans(ctx context.Context, arg repository.ResetDailyScansParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls++
	p, ok := f.profiles[arg.ID]
	if !ok {
		return nil
	}
	p.ScansToday = 0
	p.LastScanReset = arg.LastScanReset
	f.profiles[arg.ID] = p
	return nil
}

func (f *fakeStore) UpdateProfileStripeCustomer(ctx context.Context, arg repository.UpdateProfileStripeCustomerParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[arg.ID]; ok {
		p.StripeCustomerID = arg.StripeCustomerID
		f.profiles[arg.ID] = p
	}
	return nil
}

func (f *fakeStore) UpdateProfileTier(ctx context.Context, arg repository.UpdateProfileTierParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[arg.ID]; ok {
		p.Tier = arg.Tier
		f.profiles[arg.ID] = p
	}
	return nil
}

func (f *fakeStore) UpdateProfileTierByStripeCustomer(ctx context.Context, arg repository.UpdateProfileTierByStripeCustomerParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, p := range f.profiles {
		if p.StripeCustomerID.Valid && p.StripeCustomerID.String == arg.StripeCustomerID.String {
			p.Tier = arg.Tier
			f.profiles[id] = p
			n++
		}
	}
	return n, nil
}

var errStoreDown = errors.New("store down")

package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DukeRupert/nocap/internal/ai"
	"github.com/DukeRupert/nocap/internal/ai/mock"
	"github.com/DukeRupert/nocap/internal/auth"
	"github.com/DukeRupert/nocap/internal/billing"
	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/DukeRupert/nocap/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

var (
	// fixedNow is mid-afternoon UTC so "yesterday" and "today" are unambiguous.
	fixedNow  = time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	yesterday = fixedNow.Add(-24 * time.Hour)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture wires the real services over an in-memory store and a mock provider.
type fixture struct {
	store    *fakeStore
	provider *mock.Provider
	tokens   *auth.UnlockTokens
	billing  *fakeBilling

	usage   *usageService
	scans   *scanService
	unlock  *unlockService
	payment *billingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := discardLogger()
	store := newFakeStore()
	store.now = func() time.Time { return fixedNow }

	provider := mock.New(logger)
	gateway := ai.NewGateway(provider, ai.GatewayConfig{RequestTimeout: time.Second}, logger)

	tokens, err := auth.NewUnlockTokens("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)

	policy := domain.DefaultEntitlementPolicy()
	fb := &fakeBilling{}

	usage := NewUsageService(store, policy, logger).(*usageService)
	usage.now = func() time.Time { return fixedNow }

	scans := NewScanService(store, usage, gateway, tokens, policy, ScanServiceConfig{BaseURL: "https://nocap.test/"}, logger).(*scanService)

	unlock := NewUnlockService(store, usage, tokens, fb, logger).(*unlockService)
	unlock.now = func() time.Time { return fixedNow }

	payment := NewBillingService(store, fb, "https://nocap.test", logger).(*billingService)
	payment.now = func() time.Time { return fixedNow }

	return &fixture{
		store:    store,
		provider: provider,
		tokens:   tokens,
		billing:  fb,
		usage:    usage,
		scans:    scans,
		unlock:   unlock,
		payment:  payment,
	}
}

// seedProfile stores a profile for a new viewer and returns the viewer.
func (f *fixture) seedProfile(tier domain.Tier, scansToday int, lastReset time.Time) *domain.Viewer {
	v := &domain.Viewer{ID: uuid.New(), Email: "someone@example.com"}
	f.store.putProfile(repository.Profile{
		ID:            v.ID,
		Email:         v.Email,
		Tier:          string(tier),
		ScansToday:    int32(scansToday),
		LastScanReset: lastReset,
		TotalScans:    int32(scansToday),
	})
	return v
}

var validScan = domain.SubmitScanParams{
	Messages: []string{"where were you last night?", "at my cousin's, long story"},
	Context:  domain.ContextDating,
	ClientIP: "203.0.113.7",
}

func submitAs(viewer *domain.Viewer) domain.SubmitScanParams {
	p := validScan
	p.Viewer = viewer
	return p
}

// fakeBilling is a billing.Service with overridable behavior.
type fakeBilling struct {
	CreateCheckoutSessionFunc  func(params billing.CheckoutParams) (*domain.CheckoutSession, error)
	GetCheckoutSessionFunc     func(sessionID string) (*domain.CheckoutSession, error)
	VerifyWebhookSignatureFunc func(payload []byte, signature string) (stripe.Event, error)

	created []billing.CheckoutParams
	lookups int
}

func (b *fakeBilling) CreateCheckoutSession(params billing.CheckoutParams) (*domain.CheckoutSession, error) {
	b.created = append(b.created, params)
	if b.CreateCheckoutSessionFunc != nil {
		return b.CreateCheckoutSessionFunc(params)
	}
	return &domain.CheckoutSession{ID: "cs_test_new", URL: "https://checkout.stripe.test/cs_test_new", Plan: params.Plan}, nil
}

func (b *fakeBilling) GetCheckoutSession(sessionID string) (*domain.CheckoutSession, error) {
	b.lookups++
	if b.GetCheckoutSessionFunc != nil {
		return b.GetCheckoutSessionFunc(sessionID)
	}
	return nil, billing.ErrSessionNotFound
}

func (b *fakeBilling) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	if b.VerifyWebhookSignatureFunc != nil {
		return b.VerifyWebhookSignatureFunc(payload, signature)
	}
	return stripe.Event{}, nil
}

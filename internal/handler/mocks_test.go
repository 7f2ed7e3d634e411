package handler

import (
	"context"
	"errors"

	"github.com/DukeRupert/nocap/internal/billing"
	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
)

// =============================================================================
// Mock Service Implementations
// =============================================================================

type mockScanService struct {
	SubmitFunc func(ctx context.Context, params domain.SubmitScanParams) (*domain.SubmitResult, error)
}

func (m *mockScanService) Submit(ctx context.Context, params domain.SubmitScanParams) (*domain.SubmitResult, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, params)
	}
	return nil, errors.New("SubmitFunc not implemented")
}

type mockUnlockService struct {
	ViewFunc func(ctx context.Context, req domain.ViewRequest) (*domain.ScanView, error)
}

func (m *mockUnlockService) View(ctx context.Context, req domain.ViewRequest) (*domain.ScanView, error) {
	if m.ViewFunc != nil {
		return m.ViewFunc(ctx, req)
	}
	return nil, errors.New("ViewFunc not implemented")
}

type mockUsageService struct {
	AuthorizeFunc func(ctx context.Context, viewer *domain.Viewer) (domain.Entitlement, error)
	GetUsageFunc  func(ctx context.Context, viewer *domain.Viewer) (*domain.UsageSnapshot, error)
}

func (m *mockUsageService) Authorize(ctx context.Context, viewer *domain.Viewer) (domain.Entitlement, error) {
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(ctx, viewer)
	}
	return domain.Entitlement{}, errors.New("AuthorizeFunc not implemented")
}

func (m *mockUsageService) GetUsage(ctx context.Context, viewer *domain.Viewer) (*domain.UsageSnapshot, error) {
	if m.GetUsageFunc != nil {
		return m.GetUsageFunc(ctx, viewer)
	}
	return nil, errors.New("GetUsageFunc not implemented")
}

func (m *mockUsageService) GetTier(ctx context.Context, userID uuid.UUID) (domain.Tier, error) {
	return domain.TierFree, nil
}

type mockBillingService struct {
	CreateCheckoutFunc    func(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error)
	CompleteCheckoutFunc  func(ctx context.Context, sess *domain.CheckoutSession) error
	ApplySubscriptionFunc func(ctx context.Context, change *billing.SubscriptionChange) error
}

func (m *mockBillingService) CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	if m.CreateCheckoutFunc != nil {
		return m.CreateCheckoutFunc(ctx, req)
	}
	return nil, errors.New("CreateCheckoutFunc not implemented")
}

func (m *mockBillingService) CompleteCheckout(ctx context.Context, sess *domain.CheckoutSession) error {
	if m.CompleteCheckoutFunc != nil {
		return m.CompleteCheckoutFunc(ctx, sess)
	}
	return errors.New("CompleteCheckoutFunc not implemented")
}

func (m *mockBillingService) ApplySubscription(ctx context.Context, change *billing.SubscriptionChange) error {
	if m.ApplySubscriptionFunc != nil {
		return m.ApplySubscriptionFunc(ctx, change)
	}
	return errors.New("ApplySubscriptionFunc not implemented")
}

// mockStripe is a billing.Service that trusts every signature.
type mockStripe struct {
	VerifyWebhookSignatureFunc func(payload []byte, signature string) (stripe.Event, error)
}

func (m *mockStripe) CreateCheckoutSession(billing.CheckoutParams) (*domain.CheckoutSession, error) {
	return nil, errors.New("not used")
}

func (m *mockStripe) GetCheckoutSession(string) (*domain.CheckoutSession, error) {
	return nil, billing.ErrSessionNotFound
}

func (m *mockStripe) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature)
	}
	return stripe.Event{}, errors.New("VerifyWebhookSignatureFunc not implemented")
}

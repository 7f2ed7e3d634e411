package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DukeRupert/nocap/internal/billing"
	"github.com/DukeRupert/nocap/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillingService_CreateCheckout_Errors(t *testing.T) {
	f := newFixture(t)
	viewer := f.seedProfile(domain.TierFree, 0, fixedNow)
	pro := f.seedProfile(domain.TierPro, 0, fixedNow)
	scanID := createScan(t, f, viewer)

	unconfigured := NewBillingService(f.store, nil, "https://nocap.test", discardLogger())

	tests := []struct {
		name string
		svc  BillingService
		req  domain.CheckoutRequest
		code string
	}{
		{"anonymous", f.payment, domain.CheckoutRequest{Plan: domain.PlanOneTime, ScanID: scanID}, domain.EUNAUTHORIZED},
		{"not configured", unconfigured, domain.CheckoutRequest{Plan: domain.PlanOneTime, ScanID: scanID, Viewer: viewer}, domain.EUNAVAILABLE},
		{"bad plan", f.payment, domain.CheckoutRequest{Plan: "yearly", ScanID: scanID, Viewer: viewer}, domain.EINVALID},
		{"onetime without scan", f.payment, domain.CheckoutRequest{Plan: domain.PlanOneTime, Viewer: viewer}, domain.EINVALID},
		{"unknown scan", f.payment, domain.CheckoutRequest{Plan: domain.PlanOneTime, ScanID: uuid.New(), Viewer: viewer}, domain.ENOTFOUND},
		{"already pro", f.payment, domain.CheckoutRequest{Plan: domain.PlanMonthly, Viewer: pro}, domain.EINVALID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.CreateCheckout(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, domain.ErrorCode(err))
		})
	}
	assert.Empty(t, f.billing.created)
}

func TestBillingService_CreateCheckout_OneTime(t *testing.T) {
	f := newFixture(t)
	viewer := f.seedProfile(domain.TierFree, 0, fixedNow)
	scanID := createScan(t, f, viewer)

	sess, err := f.payment.CreateCheckout(context.Background(), domain.CheckoutRequest{
		Plan:   domain.PlanOneTime,
		ScanID: scanID,
		Viewer: viewer,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.URL)

	require.Len(t, f.billing.created, 1)
	params := f.billing.created[0]
	assert.Equal(t, viewer.ID.String(), params.UserID)
	assert.Equal(t, scanID.String(), params.ScanID)
	assert.Equal(t, "https://nocap.test/result/"+scanID.String()+"?checkout_session_id={CHECKOUT_SESSION_ID}", params.SuccessURL)
	assert.Equal(t, "https://nocap.test/result/"+scanID.String(), params.CancelURL)
	assert.Equal(t, viewer.Email, params.Email)
}

func TestBillingService_CreateCheckout_MonthlyCreatesProfile(t *testing.T) {
	f := newFixture(t)
	viewer := &domain.Viewer{ID: uuid.New(), Email: "first@example.com"}

	_, err := f.payment.CreateCheckout(context.Background(), domain.CheckoutRequest{Plan: domain.PlanMonthly, Viewer: viewer})
	require.NoError(t, err)

	_, ok := f.store.profile(viewer.ID)
	assert.True(t, ok)

	params := f.billing.created[0]
	assert.Empty(t, params.ScanID)
	assert.Equal(t, "https://nocap.test/pricing", params.CancelURL)
}

func TestBillingService_CreateCheckout_ProviderError(t *testing.T) {
	f := newFixture(t)
	viewer := f.seedProfile(domain.TierFree, 0, fixedNow)
	f.billing.CreateCheckoutSessionFunc = func(billing.CheckoutParams) (*domain.CheckoutSession, error) {
		return nil, errors.New("card network on fire")
	}

	_, err := f.payment.CreateCheckout(context.Background(), domain.CheckoutRequest{Plan: domain.PlanMonthly, Viewer: viewer})
	assert.Equal(t, domain.EUPSTREAM, domain.ErrorCode(err))
}

func TestBillingService_CompleteCheckout_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	viewer := f.seedProfile(domain.TierFree, 0, fixedNow)
	scanID := createScan(t, f, viewer)

	sess := &domain.CheckoutSession{
		ID:     "cs_once",
		Paid:   true,
		UserID: viewer.ID.String(),
		ScanID: scanID.String(),
		Plan:   domain.PlanOneTime,
	}

	require.NoError(t, f.payment.CompleteCheckout(context.Background(), sess))
	row, _ := f.store.scan(scanID)
	require.True(t, row.Unlocked)
	first := row.UnlockedAt

	f.payment.now = func() time.Time { return fixedNow.Add(10 * time.Minute) }
	require.NoError(t, f.payment.CompleteCheckout(context.Background(), sess))

	row, _ = f.store.scan(scanID)
	assert.True(t, row.Unlocked)
	assert.Equal(t, first, row.UnlockedAt)
	assert.Len(t, f.store.events, 1)

	p, _ := f.store.profile(viewer.ID)
	assert.Equal(t, "free", p.Tier)
}

func TestBillingService_CompleteCheckout_MonthlyUpgradesTier(t *testing.T) {
	f := newFixture(t)
	viewer := f.seedProfile(domain.TierFree, 3, fixedNow)

	err := f.payment.CompleteCheckout(context.Background(), &domain.CheckoutSession{
		ID:         "cs_sub",
		Paid:       true,
		UserID:     viewer.ID.String(),
		Plan:       domain.PlanMonthly,
		CustomerID: "cus_42",
	})
	require.NoError(t, err)

	p, _ := f.store.profile(viewer.ID)
	assert.Equal(t, "pro", p.Tier)
	assert.Equal(t, "cus_42", p.StripeCustomerID.String)

	// the upgraded user is past the free cap but may scan again
	res, err := f.scans.Submit(context.Background(), submitAs(viewer))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.True(t, res.Unlocked)
}

func TestBillingService_CompleteCheckout_SkipsUnpaidAndBadSessions(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.payment.CompleteCheckout(context.Background(), &domain.CheckoutSession{ID: "cs_unpaid", UserID: uuid.NewString()}))
	assert.Empty(t, f.store.events)

	err := f.payment.CompleteCheckout(context.Background(), &domain.CheckoutSession{ID: "cs_anon", Paid: true})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestBillingService_CompleteCheckout_UnknownScan(t *testing.T) {
	f := newFixture(t)
	viewer := f.seedProfile(domain.TierFree, 0, fixedNow)

	err := f.payment.CompleteCheckout(context.Background(), &domain.CheckoutSession{
		ID:     "cs_orphan",
		Paid:   true,
		UserID: viewer.ID.String(),
		ScanID: uuid.NewString(),
		Plan:   domain.PlanOneTime,
	})
	require.NoError(t, err)

	event, err := f.store.GetPaymentEvent(context.Background(), "cs_orphan")
	require.NoError(t, err)
	assert.False(t, event.ScanID.Valid)
}

func TestBillingService_ApplySubscription(t *testing.T) {
	f := newFixture(t)
	byUser := f.seedProfile(domain.TierFree, 0, fixedNow)
	byCustomer := f.seedProfile(domain.TierPro, 0, fixedNow)
	p, _ := f.store.profile(byCustomer.ID)
	p.StripeCustomerID = toNullString("cus_7")
	f.store.putProfile(p)

	require.NoError(t, f.payment.ApplySubscription(context.Background(), &billing.SubscriptionChange{
		UserID: byUser.ID.String(),
		Active: true,
	}))
	got, _ := f.store.profile(byUser.ID)
	assert.Equal(t, "pro", got.Tier)

	require.NoError(t, f.payment.ApplySubscription(context.Background(), &billing.SubscriptionChange{
		CustomerID: "cus_7",
		Active:     false,
	}))
	got, _ = f.store.profile(byCustomer.ID)
	assert.Equal(t, "free", got.Tier)

	// unknown customers are logged, not failed, so the webhook is not retried forever
	require.NoError(t, f.payment.ApplySubscription(context.Background(), &billing.SubscriptionChange{CustomerID: "cus_nobody"}))
}

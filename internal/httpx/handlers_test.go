package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servexlb/wholesale-harmony-system-sub000/internal/catalog"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/credential"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/fulfillment"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/subscription"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/wallet"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type stubIntake struct {
	res fulfillment.PlaceOrderResult
	err error
}

func (s *stubIntake) PlaceOrder(context.Context, fulfillment.PlaceOrderRequest) (fulfillment.PlaceOrderResult, error) {
	return s.res, s.err
}

type stubRenewer struct {
	results []subscription.RenewResult
}

func (s *stubRenewer) Renew(context.Context, subscription.RenewRequest) (subscription.Subscription, int64, error) {
	return subscription.Subscription{}, 0, subscription.ErrSubscriptionNotFound
}

func (s *stubRenewer) BulkRenew(context.Context, string, []string) []subscription.RenewResult {
	return s.results
}

type stubSubs struct {
	subs map[string]subscription.Subscription
}

func (s *stubSubs) Get(_ context.Context, id string) (subscription.Subscription, error) {
	sub, ok := s.subs[id]
	if !ok {
		return subscription.Subscription{}, subscription.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *stubSubs) ListByOwner(context.Context, string) ([]subscription.Subscription, error) {
	return nil, nil
}

func (s *stubSubs) Cancel(context.Context, string) error { return nil }

type stubPool struct{ av credential.Availability }

func (s *stubPool) CheckAvailability(context.Context, string) (credential.Availability, error) {
	return s.av, nil
}

type stubCatalog struct{}

func (stubCatalog) GetProduct(context.Context, string) (catalog.Product, error) {
	return catalog.Product{}, catalog.ErrProductNotFound
}
func (stubCatalog) ListProducts(context.Context) ([]catalog.Product, error) { return nil, nil }

type stubWallet struct{ balance int64 }

func (s *stubWallet) Balance(context.Context, string) (int64, error) { return s.balance, nil }
func (s *stubWallet) Credit(_ context.Context, _ string, cents int64, _, _ string) (int64, error) {
	if cents <= 0 {
		return 0, wallet.ErrInvalidAmount
	}
	s.balance += cents
	return s.balance, nil
}

func newTestHandler(intake OrderPlacer, renewer Renewer, subs SubscriptionStore) (*Handler, http.Handler) {
	h := &Handler{
		Intake:    intake,
		Lifecycle: renewer,
		Subs:      subs,
		Catalog:   stubCatalog{},
		Pool:      &stubPool{},
		Wallet:    &stubWallet{},
		Now:       func() time.Time { return testNow },
	}
	r := NewRouter()
	h.Register(r)
	return h, r
}

func TestPlaceOrderCreated(t *testing.T) {
	t.Parallel()

	credID := "cred-1"
	intake := &stubIntake{res: fulfillment.PlaceOrderResult{
		Order: fulfillment.Order{ID: "o-1", TotalCents: 2997, Status: fulfillment.OrderFulfilled, CredentialID: &credID},
		Subscription: &subscription.Subscription{ID: "s-1"},
		Credential:   &credential.Credential{Email: "a@b.com", Password: "x"},
	}}
	_, r := newTestHandler(intake, &stubRenewer{}, &stubSubs{})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"buyer_id":"b-1","product_id":"p-1","duration_months":3}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp placeOrderResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "o-1", resp.OrderID)
	assert.Equal(t, "s-1", resp.SubscriptionID)
	assert.Equal(t, int64(2997), resp.TotalCents)
	require.NotNil(t, resp.Credential)
	assert.Equal(t, "a@b.com", resp.Credential.Email)
}

func TestPlaceOrderInsufficientFundsIs402(t *testing.T) {
	t.Parallel()

	intake := &stubIntake{err: wallet.ErrInsufficientFunds}
	_, r := newTestHandler(intake, &stubRenewer{}, &stubSubs{})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"buyer_id":"b-1","product_id":"p-1"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestPlaceOrderMissingFieldIs422(t *testing.T) {
	t.Parallel()

	intake := &stubIntake{err: fulfillment.ErrMissingField}
	_, r := newTestHandler(intake, &stubRenewer{}, &stubSubs{})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"buyer_id":"b-1","product_id":"p-1"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSubscriptionStatusDerivesFromDates(t *testing.T) {
	t.Parallel()

	credID := "cred-1"
	subs := &stubSubs{subs: map[string]subscription.Subscription{
		"s-1": {
			ID:           "s-1",
			Status:       subscription.StatusActive, // stale stored value
			CredentialID: &credID,
			StartAt:      testNow.AddDate(0, 0, -40),
			EndAt:        testNow.AddDate(0, 0, 5),
		},
	}}
	_, r := newTestHandler(&stubIntake{}, &stubRenewer{}, subs)

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/s-1/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var view subscription.StatusView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, subscription.StatusExpiringSoon, view.Status)
	assert.Equal(t, subscription.StatusActive, view.StoredStatus)
	assert.Equal(t, 5, view.DaysLeft)
	assert.Equal(t, 89, view.ProgressPct)
}

func TestSubscriptionStatusCustomThreshold(t *testing.T) {
	t.Parallel()

	credID := "cred-1"
	subs := &stubSubs{subs: map[string]subscription.Subscription{
		"s-1": {
			ID:           "s-1",
			Status:       subscription.StatusActive,
			CredentialID: &credID,
			StartAt:      testNow.AddDate(0, 0, -40),
			EndAt:        testNow.AddDate(0, 0, 5),
		},
	}}
	_, r := newTestHandler(&stubIntake{}, &stubRenewer{}, subs)

	// reseller-style window: 5 days left vs threshold 3 is still active
	req := httptest.NewRequest(http.MethodGet, "/subscriptions/s-1/status?threshold=3", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var view subscription.StatusView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, subscription.StatusActive, view.Status)
}

func TestSubscriptionStatusNotFound(t *testing.T) {
	t.Parallel()

	_, r := newTestHandler(&stubIntake{}, &stubRenewer{}, &stubSubs{})

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/missing/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBulkRenewReportsPerItemOutcomes(t *testing.T) {
	t.Parallel()

	renewer := &stubRenewer{results: []subscription.RenewResult{
		{SubscriptionID: "s-1", NewEndAt: "2026-06-10T12:00:00Z", ChargedCents: 999},
		{SubscriptionID: "s-2", Error: wallet.ErrInsufficientFunds.Error()},
	}}
	_, r := newTestHandler(&stubIntake{}, renewer, &stubSubs{})

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/renew-bulk",
		strings.NewReader(`{"buyer_id":"b-1","subscription_ids":["s-1","s-2"]}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Results []subscription.RenewResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Empty(t, resp.Results[0].Error)
	assert.Equal(t, int64(999), resp.Results[0].ChargedCents)
	assert.NotEmpty(t, resp.Results[1].Error)
}

func TestAvailability(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(&stubIntake{}, &stubRenewer{}, &stubSubs{})
	h.Pool = &stubPool{av: credential.Availability{Available: true, Count: 2}}
	r := NewRouter()
	h.Register(r)

	req := httptest.NewRequest(http.MethodGet, "/products/p-1/availability", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Available bool `json:"available"`
		Count     int  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Available)
	assert.Equal(t, 2, resp.Count)
}

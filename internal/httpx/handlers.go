package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/servexlb/wholesale-harmony-system-sub000/internal/catalog"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/credential"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/fulfillment"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/redisx"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/reseller"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/subscription"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/wallet"
)

// Small interfaces so handlers can be exercised against stubs.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req fulfillment.PlaceOrderRequest) (fulfillment.PlaceOrderResult, error)
}

type Renewer interface {
	Renew(ctx context.Context, req subscription.RenewRequest) (subscription.Subscription, int64, error)
	BulkRenew(ctx context.Context, buyerID string, ids []string) []subscription.RenewResult
}

type SubscriptionStore interface {
	Get(ctx context.Context, id string) (subscription.Subscription, error)
	ListByOwner(ctx context.Context, ownerID string) ([]subscription.Subscription, error)
	Cancel(ctx context.Context, id string) error
}

type OrderStore interface {
	Get(ctx context.Context, id string) (fulfillment.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]fulfillment.Order, error)
}

type CatalogReader interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	ListProducts(ctx context.Context) ([]catalog.Product, error)
}

type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, productID string) (credential.Availability, error)
}

type WalletOps interface {
	Balance(ctx context.Context, accountID string) (int64, error)
	Credit(ctx context.Context, accountID string, cents int64, reason, reference string) (int64, error)
}

type ResellerOps interface {
	ListCustomers(ctx context.Context, wholesalerID string) ([]wallet.Account, error)
	CreateCustomer(ctx context.Context, wholesalerID, name string) (wallet.Account, error)
	PurchaseForCustomer(ctx context.Context, wholesalerID, customerID string, req fulfillment.PlaceOrderRequest) (fulfillment.PlaceOrderResult, error)
	EndingSoon(ctx context.Context, wholesalerID string, thresholdDays int) ([]subscription.StatusView, error)
}

type Handler struct {
	Intake    OrderPlacer
	Orders    OrderStore
	Lifecycle Renewer
	Subs      SubscriptionStore
	Catalog   CatalogReader
	Pool      AvailabilityChecker
	Wallet    WalletOps
	Reseller  ResellerOps
	Redis     *redis.Client
	Now       func() time.Time
}

func (h *Handler) Register(r *chi.Mux) {
	r.Post("/orders", h.placeOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/accounts/{id}/orders", h.listOrders)
	r.Post("/subscriptions/{id}/renew", h.renew)
	r.Post("/subscriptions/renew-bulk", h.bulkRenew)
	r.Get("/subscriptions/{id}/status", h.subscriptionStatus)
	r.Post("/subscriptions/{id}/cancel", h.cancelSubscription)
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}/availability", h.availability)
	r.Get("/accounts/{id}/balance", h.balance)
	r.Post("/accounts/{id}/credit", h.credit)
	r.Get("/accounts/{id}/subscriptions", h.listSubscriptions)
	r.Get("/resellers/{id}/customers", h.listCustomers)
	r.Post("/resellers/{id}/customers", h.createCustomer)
	r.Post("/resellers/{id}/customers/{customerID}/orders", h.purchaseForCustomer)
	r.Get("/resellers/{id}/ending-soon", h.endingSoon)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor maps the engine's tagged errors onto HTTP codes. Insufficient
// funds is 402: an expected outcome the UI answers with a top-up prompt.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, subscription.ErrSubscriptionNotFound),
		errors.Is(err, wallet.ErrAccountNotFound),
		errors.Is(err, reseller.ErrCustomerNotFound),
		errors.Is(err, fulfillment.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, fulfillment.ErrMissingField):
		return http.StatusUnprocessableEntity
	case errors.Is(err, credential.ErrCredentialConflict),
		errors.Is(err, subscription.ErrSubscriptionCancelled),
		errors.Is(err, reseller.ErrNotWholesaler):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type placeOrderResp struct {
	OrderID           string                 `json:"order_id"`
	SubscriptionID    string                 `json:"subscription_id,omitempty"`
	TotalCents        int64                  `json:"total_cents"`
	NewBalanceCents   int64                  `json:"new_balance_cents"`
	Credential        *credential.Credential `json:"credential,omitempty"`
	CredentialPending bool                   `json:"credential_pending"`
	Idempotent        bool                   `json:"idempotent"`
}

func toPlaceOrderResp(res fulfillment.PlaceOrderResult) placeOrderResp {
	resp := placeOrderResp{
		OrderID:           res.Order.ID,
		TotalCents:        res.Order.TotalCents,
		NewBalanceCents:   res.NewBalanceCents,
		Credential:        res.Credential,
		CredentialPending: res.CredentialPending,
		Idempotent:        res.Idempotent,
	}
	if res.Subscription != nil {
		resp.SubscriptionID = res.Subscription.ID
	}
	return resp
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req fulfillment.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.IntentID == "" {
		req.IntentID = r.Header.Get("X-Intent-Id")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Intake.PlaceOrder(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlaceOrderResp(res))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Orders.ListByBuyer(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) renew(w http.ResponseWriter, r *http.Request) {
	var req subscription.RenewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	req.SubscriptionID = chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sub, charged, err := h.Lifecycle.Renew(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subscription_id": sub.ID,
		"end_at":          sub.EndAt,
		"status":          sub.Status,
		"charged_cents":   charged,
	})
}

type bulkRenewReq struct {
	BuyerID         string   `json:"buyer_id"`
	SubscriptionIDs []string `json:"subscription_ids"`
}

func (h *Handler) bulkRenew(w http.ResponseWriter, r *http.Request) {
	var req bulkRenewReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.BuyerID == "" || len(req.SubscriptionIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	results := h.Lifecycle.BulkRenew(ctx, req.BuyerID, req.SubscriptionIDs)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) subscriptionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	threshold := subscription.DefaultRetailThresholdDays
	if v := r.URL.Query().Get("threshold"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			threshold = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache only serves the default threshold; custom windows re-derive
	key := fmt.Sprintf(redisx.KeySubStatus, id)
	if h.Redis != nil && threshold == subscription.DefaultRetailThresholdDays {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	sub, err := h.Subs.Get(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	view := subscription.View(sub, h.now(), threshold)
	if h.Redis != nil && threshold == subscription.DefaultRetailThresholdDays {
		b, _ := json.Marshal(view)
		_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Subs.Cancel(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeySubStatus, chi.URLParam(r, "id"))).Err()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListProducts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	av, err := h.Pool.CheckAvailability(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": av.Available, "count": av.Count})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	cents, err := h.Wallet.Balance(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance_cents": cents})
}

type creditReq struct {
	AmountCents int64  `json:"amount_cents"`
	Reference   string `json:"reference,omitempty"`
}

func (h *Handler) credit(w http.ResponseWriter, r *http.Request) {
	var req creditReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	balance, err := h.Wallet.Credit(ctx, chi.URLParam(r, "id"), req.AmountCents, "top-up", req.Reference)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance_cents": balance})
}

func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	subs, err := h.Subs.ListByOwner(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	now := h.now()
	views := make([]subscription.StatusView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, subscription.View(sub, now, subscription.DefaultRetailThresholdDays))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	customers, err := h.Reseller.ListCustomers(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

type createCustomerReq struct {
	Name string `json:"name"`
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing name"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Reseller.CreateCustomer(ctx, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) purchaseForCustomer(w http.ResponseWriter, r *http.Request) {
	var req fulfillment.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Reseller.PurchaseForCustomer(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "customerID"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlaceOrderResp(res))
}

func (h *Handler) endingSoon(w http.ResponseWriter, r *http.Request) {
	days := subscription.DefaultResellerThresholdDays
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	views, err := h.Reseller.EndingSoon(ctx, chi.URLParam(r, "id"), days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

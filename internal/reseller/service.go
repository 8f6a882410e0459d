package reseller

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servexlb/wholesale-harmony-system-sub000/internal/fulfillment"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/subscription"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/wallet"
)

var (
	ErrNotWholesaler    = errors.New("account is not a wholesaler")
	ErrCustomerNotFound = errors.New("customer not found")
)

type AccountStore interface {
	GetAccount(ctx context.Context, id string) (wallet.Account, error)
	CreateAccount(ctx context.Context, id string, kind wallet.AccountKind, name string, wholesalerID *string) (wallet.Account, error)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req fulfillment.PlaceOrderRequest) (fulfillment.PlaceOrderResult, error)
}

// Service scopes customers, orders and subscriptions to a wholesaler.
// Purchases for a customer charge the wholesaler's wallet while the customer
// owns the resulting subscription; that asymmetry is the whole point.
type Service struct {
	DB       *pgxpool.Pool
	Accounts AccountStore
	Intake   OrderPlacer
	Subs     *subscription.Repo
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) requireWholesaler(ctx context.Context, id string) (wallet.Account, error) {
	acc, err := s.Accounts.GetAccount(ctx, id)
	if err != nil {
		return wallet.Account{}, err
	}
	if acc.Kind != wallet.KindWholesaler {
		return wallet.Account{}, ErrNotWholesaler
	}
	return acc, nil
}

// Customer visibility is exactly the set managed by this wholesaler.
func (s *Service) getCustomer(ctx context.Context, wholesalerID, customerID string) (wallet.Account, error) {
	c, err := s.Accounts.GetAccount(ctx, customerID)
	if err != nil {
		if errors.Is(err, wallet.ErrAccountNotFound) {
			return wallet.Account{}, ErrCustomerNotFound
		}
		return wallet.Account{}, err
	}
	if c.WholesalerID == nil || *c.WholesalerID != wholesalerID {
		return wallet.Account{}, ErrCustomerNotFound
	}
	return c, nil
}

func (s *Service) ListCustomers(ctx context.Context, wholesalerID string) ([]wallet.Account, error) {
	if _, err := s.requireWholesaler(ctx, wholesalerID); err != nil {
		return nil, err
	}
	rows, err := s.DB.Query(ctx, `
		SELECT id, kind, name, wholesaler_id, balance_cents, created_at, updated_at
		FROM accounts WHERE wholesaler_id=$1 ORDER BY name`, wholesalerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []wallet.Account
	for rows.Next() {
		var a wallet.Account
		if err := rows.Scan(&a.ID, &a.Kind, &a.Name, &a.WholesalerID, &a.BalanceCents, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Service) CreateCustomer(ctx context.Context, wholesalerID, name string) (wallet.Account, error) {
	if _, err := s.requireWholesaler(ctx, wholesalerID); err != nil {
		return wallet.Account{}, err
	}
	return s.Accounts.CreateAccount(ctx, uuid.NewString(), wallet.KindCustomer, name, &wholesalerID)
}

// PurchaseForCustomer places an order with the wholesaler as payer and the
// customer as subscription owner.
func (s *Service) PurchaseForCustomer(ctx context.Context, wholesalerID, customerID string, req fulfillment.PlaceOrderRequest) (fulfillment.PlaceOrderResult, error) {
	if _, err := s.requireWholesaler(ctx, wholesalerID); err != nil {
		return fulfillment.PlaceOrderResult{}, err
	}
	customer, err := s.getCustomer(ctx, wholesalerID, customerID)
	if err != nil {
		return fulfillment.PlaceOrderResult{}, err
	}

	req.BuyerID = wholesalerID
	req.OwnerID = customer.ID
	if req.CustomerName == "" {
		req.CustomerName = customer.Name
	}
	return s.Intake.PlaceOrder(ctx, req)
}

// EndingSoon lists derived status views for customer subscriptions that run
// out within thresholdDays.
func (s *Service) EndingSoon(ctx context.Context, wholesalerID string, thresholdDays int) ([]subscription.StatusView, error) {
	if _, err := s.requireWholesaler(ctx, wholesalerID); err != nil {
		return nil, err
	}
	if thresholdDays <= 0 {
		thresholdDays = subscription.DefaultResellerThresholdDays
	}
	now := s.now()
	subs, err := s.Subs.ListEndingSoonForWholesaler(ctx, wholesalerID, time.Duration(thresholdDays)*24*time.Hour, now)
	if err != nil {
		return nil, err
	}
	out := make([]subscription.StatusView, 0, len(subs))
	for _, sub := range subs {
		out = append(out, subscription.View(sub, now, thresholdDays))
	}
	return out, nil
}

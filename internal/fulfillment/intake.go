package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/servexlb/wholesale-harmony-system-sub000/internal/catalog"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/credential"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/events"
	kafkax "github.com/servexlb/wholesale-harmony-system-sub000/internal/kafka"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/pricing"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/redisx"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/subscription"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/wallet"
)

// Intake turns a purchase request into a debited wallet, an assigned or
// pending credential and, for subscription products, a subscription record.
// Debit, claim and inserts run in one transaction: there is no state where
// the wallet was charged but nothing was recorded.
type Intake struct {
	DB            *pgxpool.Pool
	Orders        *Repo
	Ledger        *wallet.Ledger
	Catalog       *catalog.Repo
	Pool          *credential.Pool
	Subs          *subscription.Repo
	Redis         *redis.Client
	OrderProducer *kafkax.Producer // publishes order.fulfilled
	SubProducer   *kafkax.Producer // publishes subscription.created
	ServiceName   string
	Now           func() time.Time
}

type PlaceOrderRequest struct {
	// IntentID is a caller-supplied idempotency token; replays return the
	// original order instead of charging twice.
	IntentID string `json:"intent_id,omitempty"`
	BuyerID  string `json:"buyer_id"`
	// OwnerID is the subscription owner; empty means the buyer. Resellers set
	// it to their customer's account id.
	OwnerID        string `json:"owner_id,omitempty"`
	ProductID      string `json:"product_id"`
	DurationMonths int    `json:"duration_months,omitempty"`
	Quantity       int    `json:"quantity,omitempty"`
	RechargeRef    string `json:"recharge_account_id,omitempty"`
	CustomerName   string `json:"customer_name,omitempty"`
	// Credential, when set, is the buyer's own login; the pool is skipped.
	Credential *credential.Credential `json:"credential,omitempty"`
}

type PlaceOrderResult struct {
	Order             Order
	Subscription      *subscription.Subscription
	Credential        *credential.Credential
	NewBalanceCents   int64
	CredentialPending bool
	Idempotent        bool
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (i *Intake) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now().UTC()
}

func (i *Intake) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (PlaceOrderResult, error) {
	if req.IntentID != "" {
		if existing, err := i.Orders.GetByIntent(ctx, req.IntentID); err == nil {
			return PlaceOrderResult{Order: existing, Idempotent: true}, nil
		}
	}

	buyer, err := i.Ledger.GetAccount(ctx, req.BuyerID)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	tier := pricing.TierRetail
	if buyer.Kind == wallet.KindWholesaler {
		tier = pricing.TierWholesale
	}

	product, err := i.Catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if err := validateRequest(req, product.Kind); err != nil {
		return PlaceOrderResult{}, err
	}

	price := pricing.Price(product, pricing.Params{DurationMonths: req.DurationMonths, Quantity: req.Quantity}, tier)

	now := i.now()
	orderID := uuid.NewString()
	ownerID := req.OwnerID
	if ownerID == "" {
		ownerID = req.BuyerID
	}

	tx, err := i.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PlaceOrderResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	balance, err := i.Ledger.DebitTx(ctx, tx, req.BuyerID, price, "purchase", orderID)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	var (
		sub    *subscription.Subscription
		subID  string
		credID *string
		cred   *credential.Credential
	)
	if product.Kind == catalog.KindSubscription {
		subID = uuid.NewString()
	}

	if req.Credential != nil {
		id, err := i.Pool.InsertTx(ctx, tx, product.ID, orderID, subID, *req.Credential)
		if err != nil {
			return PlaceOrderResult{}, err
		}
		credID, cred = &id, req.Credential
	} else {
		claimed, ok, err := i.Pool.ClaimTx(ctx, tx, product.ID, orderID, subID)
		if err != nil {
			return PlaceOrderResult{}, err
		}
		if ok {
			credID, cred = &claimed.ID, &claimed.Credential
		}
		// no inventory is not an error: the order stays fulfilled and the
		// subscription is created pending for back-office provisioning
	}

	qty := req.Quantity
	if qty < 1 {
		qty = 1
	}
	var intentID *string
	if req.IntentID != "" {
		intentID = &req.IntentID
	}
	order := Order{
		ID:             orderID,
		IntentID:       intentID,
		BuyerAccountID: req.BuyerID,
		ProductID:      product.ID,
		Quantity:       qty,
		DurationMonths: req.DurationMonths,
		TotalCents:     price,
		Status:         OrderFulfilled,
		CredentialID:   credID,
		RechargeRef:    req.RechargeRef,
		CustomerName:   req.CustomerName,
		CreatedAt:      now,
	}
	if err := i.Orders.InsertTx(ctx, tx, order); err != nil {
		// a racing request with the same intent id won the insert; return its
		// order instead of charging twice
		if isUniqueViolation(err) && req.IntentID != "" {
			_ = tx.Rollback(ctx)
			if existing, lookupErr := i.Orders.GetByIntent(ctx, req.IntentID); lookupErr == nil {
				return PlaceOrderResult{Order: existing, Idempotent: true}, nil
			}
		}
		return PlaceOrderResult{}, err
	}

	if product.Kind == catalog.KindSubscription {
		status := subscription.StatusActive
		if credID == nil {
			status = subscription.StatusPending
		}
		s := subscription.Subscription{
			ID:             subID,
			OwnerAccountID: ownerID,
			ProductID:      product.ID,
			OrderID:        &orderID,
			StartAt:        now,
			EndAt:          now.AddDate(0, req.DurationMonths, 0),
			DurationMonths: req.DurationMonths,
			Status:         status,
			CredentialID:   credID,
		}
		if err := i.Subs.InsertTx(ctx, tx, s); err != nil {
			return PlaceOrderResult{}, err
		}
		sub = &s
	}

	if err := tx.Commit(ctx); err != nil {
		return PlaceOrderResult{}, err
	}

	i.afterCommit(ctx, req, order, sub)

	return PlaceOrderResult{
		Order:             order,
		Subscription:      sub,
		Credential:        cred,
		NewBalanceCents:   balance,
		CredentialPending: credID == nil,
	}, nil
}

// afterCommit does the best-effort side work: redis idempotency/status keys
// and event publication. None of it can fail the order.
func (i *Intake) afterCommit(ctx context.Context, req PlaceOrderRequest, order Order, sub *subscription.Subscription) {
	if i.Redis != nil {
		if req.IntentID != "" {
			key := fmt.Sprintf(redisx.KeyOrderIntent, req.IntentID)
			_ = i.Redis.Set(ctx, key, order.ID, redisx.TTLIdempotency).Err()
		}
		if sub != nil {
			view := subscription.View(*sub, i.now(), subscription.DefaultRetailThresholdDays)
			key := fmt.Sprintf(redisx.KeySubStatus, sub.ID)
			_ = i.Redis.Set(ctx, key, kafkax.MustMarshal(view), redisx.TTLStatusCache).Err()
		}
	}

	if i.OrderProducer != nil {
		ev := events.Envelope{
			EventID:       uuid.NewString(),
			EventType:     events.EventOrderFulfilled,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      i.ServiceName,
			CorrelationID: order.ID,
			Payload: kafkax.MustMarshal(events.OrderFulfilledPayload{
				OrderID:            order.ID,
				BuyerAccountID:     order.BuyerAccountID,
				ProductID:          order.ProductID,
				TotalCents:         order.TotalCents,
				CredentialAssigned: order.CredentialID != nil,
			}),
		}
		i.OrderProducer.Publish(events.PartitionKey(order.ID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(events.EventOrderFulfilled)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	if i.SubProducer != nil && sub != nil {
		ev := events.Envelope{
			EventID:       uuid.NewString(),
			EventType:     events.EventSubscriptionCreated,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      i.ServiceName,
			CorrelationID: sub.ID,
			Payload: kafkax.MustMarshal(events.SubscriptionCreatedPayload{
				SubscriptionID: sub.ID,
				OwnerAccountID: sub.OwnerAccountID,
				ProductID:      sub.ProductID,
				StartAt:        sub.StartAt,
				EndAt:          sub.EndAt,
				Status:         string(sub.Status),
			}),
		}
		i.SubProducer.Publish(events.PartitionKey(sub.ID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(events.EventSubscriptionCreated)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}
}

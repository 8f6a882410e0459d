package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/servexlb/wholesale-harmony-system-sub000/internal/catalog"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/credential"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/events"
	kafkax "github.com/servexlb/wholesale-harmony-system-sub000/internal/kafka"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/pricing"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/wallet"
)

// Manager owns renewal and reactivation. Each renewal is one transaction:
// debit, window extension and credential attach commit or roll back together.
type Manager struct {
	DB          *pgxpool.Pool
	Repo        *Repo
	Ledger      *wallet.Ledger
	Catalog     *catalog.Repo
	Pool        *credential.Pool
	Producer    *kafkax.Producer // publishes subscription.renewed
	ServiceName string
	Now         func() time.Time // overridable in tests
}

type RenewRequest struct {
	SubscriptionID string `json:"subscription_id"`
	BuyerID        string `json:"buyer_id"`
	// DurationMonths overrides the subscription's own duration when > 0.
	DurationMonths int `json:"duration_months,omitempty"`
}

type RenewResult struct {
	SubscriptionID string `json:"subscription_id"`
	NewEndAt       string `json:"new_end_at,omitempty"`
	ChargedCents   int64  `json:"charged_cents,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

// Renew re-prices the product at its current catalog price, debits the buyer
// and extends the subscription window. The subscription is untouched when the
// debit fails.
func (m *Manager) Renew(ctx context.Context, req RenewRequest) (Subscription, int64, error) {
	now := m.now()

	buyer, err := m.Ledger.GetAccount(ctx, req.BuyerID)
	if err != nil {
		return Subscription{}, 0, err
	}
	tier := pricing.TierRetail
	if buyer.Kind == wallet.KindWholesaler {
		tier = pricing.TierWholesale
	}

	tx, err := m.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Subscription{}, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sub, err := m.Repo.GetTx(ctx, tx, req.SubscriptionID)
	if err != nil {
		return Subscription{}, 0, err
	}
	if sub.Status == StatusCancelled {
		return Subscription{}, 0, ErrSubscriptionCancelled
	}

	product, err := m.Catalog.GetProduct(ctx, sub.ProductID)
	if err != nil {
		return Subscription{}, 0, err
	}

	months := sub.DurationMonths
	if req.DurationMonths > 0 {
		months = req.DurationMonths
	}
	price := pricing.Price(product, pricing.Params{DurationMonths: months}, tier)

	if _, err := m.Ledger.DebitTx(ctx, tx, req.BuyerID, price, "renewal", sub.ID); err != nil {
		return Subscription{}, 0, err
	}

	if now.After(sub.EndAt) {
		// reactivation: the new window starts fresh
		sub.StartAt = now
	}
	sub.EndAt = NextWindow(sub.EndAt, now, months)
	sub.DurationMonths = months

	if sub.CredentialID == nil {
		claimed, ok, err := m.Pool.ClaimTx(ctx, tx, sub.ProductID, "", sub.ID)
		if err != nil {
			return Subscription{}, 0, err
		}
		if ok {
			sub.CredentialID = &claimed.ID
		}
	}
	if sub.CredentialID != nil {
		sub.Status = StatusActive
	} else {
		sub.Status = StatusPending
	}

	if err := m.Repo.UpdateRenewalTx(ctx, tx, sub); err != nil {
		return Subscription{}, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Subscription{}, 0, err
	}

	m.publishRenewed(sub, price)
	return sub, price, nil
}

// BulkRenew applies Renew sequentially; each item is its own atomic unit and
// an early failure never rolls back renewals already committed.
func (m *Manager) BulkRenew(ctx context.Context, buyerID string, subscriptionIDs []string) []RenewResult {
	out := make([]RenewResult, 0, len(subscriptionIDs))
	for _, id := range subscriptionIDs {
		sub, charged, err := m.Renew(ctx, RenewRequest{SubscriptionID: id, BuyerID: buyerID})
		if err != nil {
			out = append(out, RenewResult{SubscriptionID: id, Error: err.Error()})
			continue
		}
		out = append(out, RenewResult{
			SubscriptionID: id,
			NewEndAt:       sub.EndAt.Format(time.RFC3339),
			ChargedCents:   charged,
		})
	}
	return out
}

func (m *Manager) publishRenewed(sub Subscription, charged int64) {
	if m.Producer == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventSubscriptionRenewed,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      m.ServiceName,
		CorrelationID: sub.ID,
		Payload: kafkax.MustMarshal(events.SubscriptionRenewedPayload{
			SubscriptionID: sub.ID,
			OwnerAccountID: sub.OwnerAccountID,
			NewEndAt:       sub.EndAt,
			ChargedCents:   charged,
		}),
	}
	m.Producer.Publish(events.PartitionKey(sub.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventSubscriptionRenewed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

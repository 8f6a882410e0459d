package events

import (
	"encoding/json"
	"time"
)

const (
	EventOrderFulfilled      = "OrderFulfilled"
	EventSubscriptionCreated = "SubscriptionCreated"
	EventSubscriptionRenewed = "SubscriptionRenewed"
	EventSubscriptionExpired = "SubscriptionExpired"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderFulfilledPayload struct {
	OrderID            string `json:"order_id"`
	BuyerAccountID     string `json:"buyer_account_id"`
	ProductID          string `json:"product_id"`
	TotalCents         int64  `json:"total_cents"`
	CredentialAssigned bool   `json:"credential_assigned"`
}

type SubscriptionCreatedPayload struct {
	SubscriptionID string    `json:"subscription_id"`
	OwnerAccountID string    `json:"owner_account_id"`
	ProductID      string    `json:"product_id"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	Status         string    `json:"status"`
}

type SubscriptionRenewedPayload struct {
	SubscriptionID string    `json:"subscription_id"`
	OwnerAccountID string    `json:"owner_account_id"`
	NewEndAt       time.Time `json:"new_end_at"`
	ChargedCents   int64     `json:"charged_cents"`
}

type SubscriptionExpiredPayload struct {
	SubscriptionID string    `json:"subscription_id"`
	OwnerAccountID string    `json:"owner_account_id"`
	EndAt          time.Time `json:"end_at"`
}

package fulfillment

import "time"

type OrderStatus string

// Order status moves forward only. An order is fulfilled the moment payment
// clears; credential pending-ness is tracked on the subscription, never by
// holding the order open.
const (
	OrderPending   OrderStatus = "pending"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID             string
	IntentID       *string
	BuyerAccountID string
	ProductID      string
	Quantity       int
	DurationMonths int
	TotalCents     int64
	Status         OrderStatus
	CredentialID   *string
	RechargeRef    string
	CustomerName   string
	CreatedAt      time.Time
}

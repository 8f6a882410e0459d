package subscription

import "time"

type Status string

const (
	StatusPending      Status = "pending"
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring-soon"
	StatusExpired      Status = "expired"
	StatusCancelled    Status = "cancelled"
)

// Caller-facing defaults for the expiring-soon window. The threshold is a
// parameter of Derive, not a constant of the engine.
const (
	DefaultRetailThresholdDays   = 30
	DefaultResellerThresholdDays = 7
)

// Subscription is the provisioned result of a fulfilled subscription order.
// The stored Status is advisory except for cancelled; display and action
// decisions must go through Derive.
type Subscription struct {
	ID             string
	OwnerAccountID string
	ProductID      string
	OrderID        *string
	StartAt        time.Time
	EndAt          time.Time
	DurationMonths int
	Status         Status
	CredentialID   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StatusView is the derived, caller-facing status payload.
type StatusView struct {
	SubscriptionID string    `json:"subscription_id"`
	Status         Status    `json:"status"`
	StoredStatus   Status    `json:"stored_status"`
	DaysLeft       int       `json:"days_left"`
	ProgressPct    int       `json:"progress_pct"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
}

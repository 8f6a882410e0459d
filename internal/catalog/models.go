package catalog

import "time"

type Kind string

const (
	KindSubscription Kind = "subscription"
	KindRecharge     Kind = "recharge"
	KindGiftcard     Kind = "giftcard"
	KindOneTime      Kind = "one-time"
)

// DurationPrice is a flat catalog price for a specific duration. An exact
// entry is authoritative and beats the per-month fallback.
type DurationPrice struct {
	Months         int
	RetailCents    int64
	WholesaleCents int64
}

type Product struct {
	ID             string
	Name           string
	Category       string
	Kind           Kind
	RetailCents    int64
	WholesaleCents int64
	ValueCents     *int64 // declared value, gift cards only
	Durations      []int  // offered duration options in months
	MonthlyPricing []DurationPrice
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PricingFor returns the flat price entry matching the duration, if any.
func (p Product) PricingFor(months int) (DurationPrice, bool) {
	for _, dp := range p.MonthlyPricing {
		if dp.Months == months {
			return dp, true
		}
	}
	return DurationPrice{}, false
}

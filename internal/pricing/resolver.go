package pricing

import (
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/catalog"
)

type Tier string

const (
	TierRetail    Tier = "retail"
	TierWholesale Tier = "wholesale"
)

// Params describe what is being bought. DurationMonths applies to
// subscription-kind products, Quantity to everything else (defaults to 1).
type Params struct {
	DurationMonths int
	Quantity       int
}

// Price resolves the charge in cents for a product at a buyer tier.
//
// An exact monthly-pricing entry for the requested duration is a flat,
// authoritative price and wins over the per-month computation even when the
// computed fallback would be cheaper.
func Price(p catalog.Product, params Params, tier Tier) int64 {
	if params.DurationMonths > 0 {
		if dp, ok := p.PricingFor(params.DurationMonths); ok {
			return tierPrice(dp.RetailCents, dp.WholesaleCents, tier)
		}
	}
	if p.Kind == catalog.KindSubscription {
		months := params.DurationMonths
		if months < 1 {
			months = 1
		}
		return tierPrice(p.RetailCents, p.WholesaleCents, tier) * int64(months)
	}
	qty := params.Quantity
	if qty < 1 {
		qty = 1
	}
	return tierPrice(p.RetailCents, p.WholesaleCents, tier) * int64(qty)
}

func tierPrice(retail, wholesale int64, tier Tier) int64 {
	if tier == TierWholesale {
		return wholesale
	}
	return retail
}

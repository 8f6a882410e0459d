package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/servexlb/wholesale-harmony-system-sub000/internal/catalog"
)

func TestPriceSubscriptionPerMonth(t *testing.T) {
	t.Parallel()

	p := catalog.Product{Kind: catalog.KindSubscription, RetailCents: 999, WholesaleCents: 700}

	assert.Equal(t, int64(2997), Price(p, Params{DurationMonths: 3}, TierRetail))
	assert.Equal(t, int64(2100), Price(p, Params{DurationMonths: 3}, TierWholesale))
	// missing duration falls back to one month
	assert.Equal(t, int64(999), Price(p, Params{}, TierRetail))
}

func TestPriceExactDurationEntryWins(t *testing.T) {
	t.Parallel()

	p := catalog.Product{
		Kind:           catalog.KindSubscription,
		RetailCents:    1500,
		WholesaleCents: 1000,
		MonthlyPricing: []catalog.DurationPrice{{Months: 3, RetailCents: 4000, WholesaleCents: 2000}},
	}

	// flat catalog entry beats the 3 x 1000 per-month computation
	assert.Equal(t, int64(2000), Price(p, Params{DurationMonths: 3}, TierWholesale))
	assert.Equal(t, int64(4000), Price(p, Params{DurationMonths: 3}, TierRetail))

	// other durations still use the fallback
	assert.Equal(t, int64(2000), Price(p, Params{DurationMonths: 2}, TierWholesale))
}

func TestPriceQuantityKinds(t *testing.T) {
	t.Parallel()

	p := catalog.Product{Kind: catalog.KindGiftcard, RetailCents: 2500, WholesaleCents: 2200}

	assert.Equal(t, int64(7500), Price(p, Params{Quantity: 3}, TierRetail))
	// quantity defaults to 1
	assert.Equal(t, int64(2500), Price(p, Params{}, TierRetail))

	r := catalog.Product{Kind: catalog.KindRecharge, RetailCents: 500, WholesaleCents: 400}
	assert.Equal(t, int64(800), Price(r, Params{Quantity: 2}, TierWholesale))
}

package reseller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servexlb/wholesale-harmony-system-sub000/internal/fulfillment"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/wallet"
)

type fakeAccounts struct {
	accounts map[string]wallet.Account
}

func (f *fakeAccounts) GetAccount(_ context.Context, id string) (wallet.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return wallet.Account{}, wallet.ErrAccountNotFound
	}
	return a, nil
}

func (f *fakeAccounts) CreateAccount(_ context.Context, id string, kind wallet.AccountKind, name string, wholesalerID *string) (wallet.Account, error) {
	a := wallet.Account{ID: id, Kind: kind, Name: name, WholesalerID: wholesalerID}
	f.accounts[id] = a
	return a, nil
}

type capturingIntake struct {
	got fulfillment.PlaceOrderRequest
}

func (c *capturingIntake) PlaceOrder(_ context.Context, req fulfillment.PlaceOrderRequest) (fulfillment.PlaceOrderResult, error) {
	c.got = req
	return fulfillment.PlaceOrderResult{}, nil
}

func newFixture() (*Service, *fakeAccounts, *capturingIntake) {
	w := "w-1"
	accounts := &fakeAccounts{accounts: map[string]wallet.Account{
		"w-1": {ID: "w-1", Kind: wallet.KindWholesaler, Name: "Reseller One"},
		"w-2": {ID: "w-2", Kind: wallet.KindWholesaler, Name: "Reseller Two"},
		"c-1": {ID: "c-1", Kind: wallet.KindCustomer, Name: "Alice", WholesalerID: &w},
		"r-1": {ID: "r-1", Kind: wallet.KindCustomer, Name: "Retail Bob"},
	}}
	intake := &capturingIntake{}
	return &Service{Accounts: accounts, Intake: intake}, accounts, intake
}

func TestPurchaseForCustomerChargesWholesaler(t *testing.T) {
	t.Parallel()

	svc, _, intake := newFixture()
	_, err := svc.PurchaseForCustomer(context.Background(), "w-1", "c-1", fulfillment.PlaceOrderRequest{
		ProductID:      "p-1",
		DurationMonths: 3,
	})
	require.NoError(t, err)

	// payer and owner deliberately differ
	assert.Equal(t, "w-1", intake.got.BuyerID)
	assert.Equal(t, "c-1", intake.got.OwnerID)
	assert.Equal(t, "Alice", intake.got.CustomerName)
}

func TestPurchaseForCustomerScopedToWholesaler(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFixture()

	// another wholesaler cannot see w-1's customer
	_, err := svc.PurchaseForCustomer(context.Background(), "w-2", "c-1", fulfillment.PlaceOrderRequest{ProductID: "p-1"})
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	// unmanaged retail accounts are invisible too
	_, err = svc.PurchaseForCustomer(context.Background(), "w-1", "r-1", fulfillment.PlaceOrderRequest{ProductID: "p-1"})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestPurchaseRequiresWholesalerAccount(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFixture()
	_, err := svc.PurchaseForCustomer(context.Background(), "c-1", "c-1", fulfillment.PlaceOrderRequest{ProductID: "p-1"})
	assert.ErrorIs(t, err, ErrNotWholesaler)
}

func TestCreateCustomerBindsWholesaler(t *testing.T) {
	t.Parallel()

	svc, accounts, _ := newFixture()
	c, err := svc.CreateCustomer(context.Background(), "w-1", "Carol")
	require.NoError(t, err)

	stored := accounts.accounts[c.ID]
	assert.Equal(t, wallet.KindCustomer, stored.Kind)
	require.NotNil(t, stored.WholesalerID)
	assert.Equal(t, "w-1", *stored.WholesalerID)
}

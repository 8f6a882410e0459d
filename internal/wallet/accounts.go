package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

type AccountKind string

const (
	KindCustomer   AccountKind = "customer"
	KindWholesaler AccountKind = "wholesaler"
)

type Account struct {
	ID           string
	Kind         AccountKind
	Name         string
	WholesalerID *string // set for customers managed by a reseller
	BalanceCents int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (l *Ledger) GetAccount(ctx context.Context, id string) (Account, error) {
	var a Account
	err := l.DB.QueryRow(ctx, `
		SELECT id, kind, name, wholesaler_id, balance_cents, created_at, updated_at
		FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Kind, &a.Name, &a.WholesalerID, &a.BalanceCents, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

func (l *Ledger) CreateAccount(ctx context.Context, id string, kind AccountKind, name string, wholesalerID *string) (Account, error) {
	var a Account
	err := l.DB.QueryRow(ctx, `
		INSERT INTO accounts(id, kind, name, wholesaler_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, kind, name, wholesaler_id, balance_cents, created_at, updated_at`,
		id, kind, name, wholesalerID,
	).Scan(&a.ID, &a.Kind, &a.Name, &a.WholesalerID, &a.BalanceCents, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

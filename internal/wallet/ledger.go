package wallet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Ledger owns per-account balances. Debits are guarded by a conditional
// update so two concurrent debits can never drive a balance negative.
type Ledger struct{ DB *pgxpool.Pool }

func (l *Ledger) Balance(ctx context.Context, accountID string) (int64, error) {
	var cents int64
	err := l.DB.QueryRow(ctx, `SELECT balance_cents FROM accounts WHERE id=$1`, accountID).Scan(&cents)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	return cents, err
}

func (l *Ledger) Debit(ctx context.Context, accountID string, cents int64, reason, reference string) (int64, error) {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	balance, err := l.DebitTx(ctx, tx, accountID, cents, reason, reference)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

// DebitTx performs the debit inside a caller-owned transaction so that debit
// and credential claim commit or roll back as one unit.
func (l *Ledger) DebitTx(ctx context.Context, tx pgx.Tx, accountID string, cents int64, reason, reference string) (int64, error) {
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE accounts SET balance_cents = balance_cents - $2, updated_at = now()
		WHERE id = $1 AND balance_cents >= $2
		RETURNING balance_cents`, accountID, cents).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		// either the account is missing or the balance is short
		var exists bool
		if err2 := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id=$1)`, accountID).Scan(&exists); err2 != nil {
			return 0, err2
		}
		if !exists {
			return 0, ErrAccountNotFound
		}
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, err
	}
	if err := l.journalTx(ctx, tx, accountID, -cents, reason, reference); err != nil {
		return 0, err
	}
	return balance, nil
}

func (l *Ledger) Credit(ctx context.Context, accountID string, cents int64, reason, reference string) (int64, error) {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	balance, err := l.CreditTx(ctx, tx, accountID, cents, reason, reference)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

func (l *Ledger) CreditTx(ctx context.Context, tx pgx.Tx, accountID string, cents int64, reason, reference string) (int64, error) {
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE accounts SET balance_cents = balance_cents + $2, updated_at = now()
		WHERE id = $1
		RETURNING balance_cents`, accountID, cents).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, err
	}
	if err := l.journalTx(ctx, tx, accountID, cents, reason, reference); err != nil {
		return 0, err
	}
	return balance, nil
}

// journalTx records one wallet_entries row per balance change, in the same
// transaction as the change itself.
func (l *Ledger) journalTx(ctx context.Context, tx pgx.Tx, accountID string, delta int64, reason, reference string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallet_entries(account_id, delta_cents, reason, reference)
		VALUES ($1, $2, $3, $4)`, accountID, delta, reason, reference)
	return err
}

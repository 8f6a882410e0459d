package fulfillment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrOrderNotFound = errors.New("order not found")

type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, intent_id, buyer_account_id, product_id, quantity, duration_months, total_cents, status, credential_id, recharge_ref, customer_name, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.IntentID, &o.BuyerAccountID, &o.ProductID, &o.Quantity, &o.DurationMonths,
		&o.TotalCents, &o.Status, &o.CredentialID, &o.RechargeRef, &o.CustomerName, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
}

// GetByIntent is the idempotency lookup: the database is the source of truth,
// redis only shortcuts it.
func (r *Repo) GetByIntent(ctx context.Context, intentID string) (Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE intent_id=$1`, intentID))
}

func (r *Repo) InsertTx(ctx context.Context, tx pgx.Tx, o Order) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO orders(id, intent_id, buyer_account_id, product_id, quantity, duration_months, total_cents, status, credential_id, recharge_ref, customer_name)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.IntentID, o.BuyerAccountID, o.ProductID, o.Quantity, o.DurationMonths,
		o.TotalCents, o.Status, o.CredentialID, o.RechargeRef, o.CustomerName)
	return err
}

func (r *Repo) ListByBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderCols+` FROM orders WHERE buyer_account_id=$1 ORDER BY created_at DESC`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.IntentID, &o.BuyerAccountID, &o.ProductID, &o.Quantity, &o.DurationMonths,
			&o.TotalCents, &o.Status, &o.CredentialID, &o.RechargeRef, &o.CustomerName, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

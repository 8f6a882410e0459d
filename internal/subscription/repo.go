package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrSubscriptionCancelled = errors.New("subscription cancelled")
)

type Repo struct{ DB *pgxpool.Pool }

const subscriptionCols = `id, owner_account_id, product_id, order_id, start_at, end_at, duration_months, status, credential_id, created_at, updated_at`

func scanSubscription(row pgx.Row) (Subscription, error) {
	var s Subscription
	err := row.Scan(&s.ID, &s.OwnerAccountID, &s.ProductID, &s.OrderID, &s.StartAt, &s.EndAt,
		&s.DurationMonths, &s.Status, &s.CredentialID, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return s, err
}

func (r *Repo) Get(ctx context.Context, id string) (Subscription, error) {
	return scanSubscription(r.DB.QueryRow(ctx, `SELECT `+subscriptionCols+` FROM subscriptions WHERE id=$1`, id))
}

func (r *Repo) GetTx(ctx context.Context, tx pgx.Tx, id string) (Subscription, error) {
	return scanSubscription(tx.QueryRow(ctx, `SELECT `+subscriptionCols+` FROM subscriptions WHERE id=$1 FOR UPDATE`, id))
}

func (r *Repo) InsertTx(ctx context.Context, tx pgx.Tx, s Subscription) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO subscriptions(id, owner_account_id, product_id, order_id, start_at, end_at, duration_months, status, credential_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.OwnerAccountID, s.ProductID, s.OrderID, s.StartAt, s.EndAt, s.DurationMonths, s.Status, s.CredentialID)
	return err
}

func (r *Repo) UpdateRenewalTx(ctx context.Context, tx pgx.Tx, s Subscription) error {
	ct, err := tx.Exec(ctx, `
		UPDATE subscriptions
		SET start_at=$2, end_at=$3, duration_months=$4, status=$5, credential_id=$6, updated_at=now()
		WHERE id=$1`,
		s.ID, s.StartAt, s.EndAt, s.DurationMonths, s.Status, s.CredentialID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *Repo) ListByOwner(ctx context.Context, ownerID string) ([]Subscription, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+subscriptionCols+` FROM subscriptions WHERE owner_account_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListEndingSoonForWholesaler lists live subscriptions owned by the
// wholesaler's customers that end within the window.
func (r *Repo) ListEndingSoonForWholesaler(ctx context.Context, wholesalerID string, within time.Duration, now time.Time) ([]Subscription, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+subscriptionCols+` FROM subscriptions
		WHERE status IN ('pending','active')
		  AND end_at > $2 AND end_at <= $3
		  AND owner_account_id IN (SELECT id FROM accounts WHERE wholesaler_id=$1)
		ORDER BY end_at`, wholesalerID, now, now.Add(within))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

type ExpiredRow struct {
	ID             string
	OwnerAccountID string
	EndAt          time.Time
}

// MarkExpired flips stored status to expired for subscriptions past their end
// date, in batches. The stored value is only a hint (Derive stays
// authoritative); the flip exists so the expired transition is observable as
// an event exactly once.
func (r *Repo) MarkExpired(ctx context.Context, now time.Time, batch int) ([]ExpiredRow, error) {
	rows, err := r.DB.Query(ctx, `
		UPDATE subscriptions SET status='expired', updated_at=now()
		WHERE id IN (
			SELECT id FROM subscriptions
			WHERE status IN ('pending','active') AND end_at <= $1
			ORDER BY end_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, owner_account_id, end_at`, now, batch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExpiredRow
	for rows.Next() {
		var e ExpiredRow
		if err := rows.Scan(&e.ID, &e.OwnerAccountID, &e.EndAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Cancel marks the subscription cancelled. Terminal: no date math revives it.
func (r *Repo) Cancel(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE subscriptions SET status='cancelled', updated_at=now() WHERE id=$1 AND status <> 'cancelled'`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func collect(rows pgx.Rows) ([]Subscription, error) {
	var out []Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.ID, &s.OwnerAccountID, &s.ProductID, &s.OrderID, &s.StartAt, &s.EndAt,
			&s.DurationMonths, &s.Status, &s.CredentialID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

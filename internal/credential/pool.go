package credential

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCredentialConflict = errors.New("credential already assigned")

// Claimed is a pool entry bound to an order/subscription.
type Claimed struct {
	ID         string
	ProductID  string
	Credential Credential
}

type Availability struct {
	Available bool
	Count     int
}

// Pool owns the per-product inventory of assignable credentials.
type Pool struct{ DB *pgxpool.Pool }

func (p *Pool) CheckAvailability(ctx context.Context, productID string) (Availability, error) {
	var n int
	err := p.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM credentials WHERE product_id=$1 AND status='available'`, productID).Scan(&n)
	if err != nil {
		return Availability{}, err
	}
	return Availability{Available: n > 0, Count: n}, nil
}

// ClaimTx atomically takes one available credential for the product and binds
// it to the order/subscription. SKIP LOCKED keeps two concurrent claims from
// ever selecting the same row; an empty pool returns ok=false, not an error.
func (p *Pool) ClaimTx(ctx context.Context, tx pgx.Tx, productID, orderID, subscriptionID string) (Claimed, bool, error) {
	var (
		id      string
		payload []byte
	)
	err := tx.QueryRow(ctx, `
		UPDATE credentials
		SET status='assigned', order_id=$2, subscription_id=NULLIF($3,''), assigned_at=now()
		WHERE id = (
			SELECT id FROM credentials
			WHERE product_id=$1 AND status='available'
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, payload`, productID, orderID, subscriptionID).Scan(&id, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Claimed{}, false, nil
	}
	if err != nil {
		return Claimed{}, false, err
	}
	cred, err := UnmarshalPayload(payload)
	if err != nil {
		return Claimed{}, false, err
	}
	return Claimed{ID: id, ProductID: productID, Credential: cred}, true, nil
}

// InsertTx stores an externally supplied credential as an already-assigned
// row so exclusivity is tracked the same way as pool entries.
func (p *Pool) InsertTx(ctx context.Context, tx pgx.Tx, productID, orderID, subscriptionID string, cred Credential) (string, error) {
	payload, err := cred.MarshalPayload()
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO credentials(id, product_id, payload, status, order_id, subscription_id, assigned_at)
		VALUES ($1, $2, $3, 'assigned', $4, NULLIF($5,''), now())`,
		id, productID, payload, orderID, subscriptionID)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Add puts a new credential into the pool as available inventory.
func (p *Pool) Add(ctx context.Context, productID string, cred Credential) (string, error) {
	payload, err := cred.MarshalPayload()
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = p.DB.Exec(ctx, `
		INSERT INTO credentials(id, product_id, payload) VALUES ($1, $2, $3)`, id, productID, payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Release returns an assigned credential to the pool, e.g. when a
// subscription is reassigned. Conflicts (row not assigned to the given
// subscription) are reported, not silently ignored.
func (p *Pool) Release(ctx context.Context, credentialID, subscriptionID string) error {
	ct, err := p.DB.Exec(ctx, `
		UPDATE credentials
		SET status='available', order_id=NULL, subscription_id=NULL, assigned_at=NULL
		WHERE id=$1 AND subscription_id=$2 AND status='assigned'`, credentialID, subscriptionID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrCredentialConflict
	}
	return nil
}

// Get loads one credential row by id.
func (p *Pool) Get(ctx context.Context, id string) (Credential, error) {
	var payload []byte
	err := p.DB.QueryRow(ctx, `SELECT payload FROM credentials WHERE id=$1`, id).Scan(&payload)
	if err != nil {
		return Credential{}, err
	}
	return UnmarshalPayload(payload)
}

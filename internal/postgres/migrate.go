package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the schema if it does not exist yet. Statements are
// idempotent so both binaries can run it at startup.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id            UUID PRIMARY KEY,
			kind          TEXT NOT NULL CHECK (kind IN ('customer','wholesaler')),
			name          TEXT NOT NULL,
			wholesaler_id UUID REFERENCES accounts(id),
			balance_cents BIGINT NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_wholesaler ON accounts(wholesaler_id)`,
		`CREATE TABLE IF NOT EXISTS wallet_entries (
			id          BIGSERIAL PRIMARY KEY,
			account_id  UUID NOT NULL REFERENCES accounts(id),
			delta_cents BIGINT NOT NULL,
			reason      TEXT NOT NULL,
			reference   TEXT,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id              UUID PRIMARY KEY,
			name            TEXT NOT NULL,
			category        TEXT NOT NULL DEFAULT '',
			kind            TEXT NOT NULL CHECK (kind IN ('subscription','recharge','giftcard','one-time')),
			retail_cents    BIGINT NOT NULL,
			wholesale_cents BIGINT NOT NULL,
			value_cents     BIGINT,
			durations       INT[] NOT NULL DEFAULT '{}',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS product_pricing (
			product_id      UUID NOT NULL REFERENCES products(id),
			months          INT NOT NULL,
			retail_cents    BIGINT NOT NULL,
			wholesale_cents BIGINT NOT NULL,
			PRIMARY KEY (product_id, months)
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			id              UUID PRIMARY KEY,
			product_id      UUID NOT NULL REFERENCES products(id),
			payload         JSONB NOT NULL,
			status          TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available','assigned')),
			subscription_id UUID,
			order_id        UUID,
			assigned_at     TIMESTAMPTZ,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_credentials_available ON credentials(product_id) WHERE status = 'available'`,
		`CREATE TABLE IF NOT EXISTS orders (
			id               UUID PRIMARY KEY,
			intent_id        TEXT UNIQUE,
			buyer_account_id UUID NOT NULL REFERENCES accounts(id),
			product_id       UUID NOT NULL REFERENCES products(id),
			quantity         INT NOT NULL DEFAULT 1,
			duration_months  INT NOT NULL DEFAULT 0,
			total_cents      BIGINT NOT NULL,
			status           TEXT NOT NULL CHECK (status IN ('pending','fulfilled','cancelled')),
			credential_id    UUID REFERENCES credentials(id),
			recharge_ref     TEXT NOT NULL DEFAULT '',
			customer_name    TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_account_id)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id               UUID PRIMARY KEY,
			owner_account_id UUID NOT NULL REFERENCES accounts(id),
			product_id       UUID NOT NULL REFERENCES products(id),
			order_id         UUID REFERENCES orders(id),
			start_at         TIMESTAMPTZ NOT NULL,
			end_at           TIMESTAMPTZ NOT NULL,
			duration_months  INT NOT NULL,
			status           TEXT NOT NULL CHECK (status IN ('pending','active','expired','cancelled')),
			credential_id    UUID REFERENCES credentials(id),
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			CHECK (end_at >= start_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_owner ON subscriptions(owner_account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_end ON subscriptions(end_at) WHERE status IN ('pending','active')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

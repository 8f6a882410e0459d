package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProductNotFound = errors.New("product not found")

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, category, kind, retail_cents, wholesale_cents, value_cents, durations, created_at, updated_at
		FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Category, &p.Kind, &p.RetailCents, &p.WholesaleCents, &p.ValueCents, &p.Durations, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT months, retail_cents, wholesale_cents
		FROM product_pricing WHERE product_id = $1 ORDER BY months`, id)
	if err != nil {
		return Product{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var dp DurationPrice
		if err := rows.Scan(&dp.Months, &dp.RetailCents, &dp.WholesaleCents); err != nil {
			return Product{}, err
		}
		p.MonthlyPricing = append(p.MonthlyPricing, dp)
	}
	return p, rows.Err()
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, category, kind, retail_cents, wholesale_cents, value_cents, durations, created_at, updated_at
		FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Kind, &p.RetailCents, &p.WholesaleCents, &p.ValueCents, &p.Durations, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

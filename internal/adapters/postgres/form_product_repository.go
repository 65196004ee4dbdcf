package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FormProductRepository implements ports.FormEngine. Product pricing lives in
// the form_products table keyed by (form_id, field_id); the submitted field
// value for a product field is its quantity.
type FormProductRepository struct {
	pool *pgxpool.Pool
}

// NewFormProductRepository creates a new form product repository.
func NewFormProductRepository(pool *pgxpool.Pool) *FormProductRepository {
	return &FormProductRepository{pool: pool}
}

// ProductTotalCents sums unit price times submitted quantity over the form's
// product fields, in minor units. Product fields absent from the submission,
// blank, or with a non-numeric quantity contribute nothing.
func (r *FormProductRepository) ProductTotalCents(ctx context.Context, formID int64, fields map[string]string) (int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT field_id, unit_price_cents
		FROM form_products
		WHERE form_id = $1`,
		formID)
	if err != nil {
		return 0, fmt.Errorf("load form products: %w", err)
	}
	defer rows.Close()

	var total int64
	for rows.Next() {
		var (
			fieldID        string
			unitPriceCents int64
		)
		if err := rows.Scan(&fieldID, &unitPriceCents); err != nil {
			return 0, fmt.Errorf("scan form product: %w", err)
		}

		raw := strings.TrimSpace(fields[fieldID])
		if raw == "" {
			continue
		}
		qty, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || qty <= 0 {
			continue
		}
		total += unitPriceCents * qty
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate form products: %w", err)
	}

	return total, nil
}

package cart

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/krishbavarva/freshcart/internal/shared/errors"
	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Repository provides database operations for carts
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new cart repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetItems returns the cart lines for a user, joined with the catalog so the
// caller always sees current prices and stock.
func (r *Repository) GetItems(ctx context.Context, userID types.ID) ([]Item, error) {
	query := `
		SELECT ci.product_id, p.name, p.image_url, p.price_cents, ci.quantity, p.stock, ci.added_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1 AND p.active = TRUE
		ORDER BY ci.added_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get cart items")
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ProductID, &item.ProductName, &item.ImageURL,
			&item.PriceCents, &item.Quantity, &item.Stock, &item.AddedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan cart item")
		}
		items = append(items, item)
	}

	return items, nil
}

// SetItem inserts or updates a cart line
func (r *Repository) SetItem(ctx context.Context, userID, productID types.ID, quantity int) error {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, added_at = NOW()`

	_, err := r.pool.Exec(ctx, query, userID, productID, quantity)
	if err != nil {
		if strings.Contains(err.Error(), "foreign key") {
			return errors.NotFound("product", productID.String())
		}
		return errors.Wrap(err, "failed to set cart item")
	}

	return nil
}

// RemoveItem removes a cart line
func (r *Repository) RemoveItem(ctx context.Context, userID, productID types.ID) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to remove cart item")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("cart item", productID.String())
	}

	return nil
}

// Clear removes all cart lines for a user
func (r *Repository) Clear(ctx context.Context, userID types.ID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return errors.Wrap(err, "failed to clear cart")
	}
	return nil
}

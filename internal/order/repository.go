package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/krishbavarva/freshcart/internal/shared/errors"
	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Repository provides database operations for orders
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new order repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, user_id, status, rider_id,
	delivery_street, delivery_city, delivery_postal_code, delivery_country,
	distance_km, duration_minutes, used_fallback,
	subtotal_cents, tax_cents, delivery_fee_cents, total_cents,
	payment_intent_id, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	o := &Order{}
	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.RiderID,
		&o.DeliveryAddress.Street, &o.DeliveryAddress.City,
		&o.DeliveryAddress.PostalCode, &o.DeliveryAddress.Country,
		&o.DistanceKm, &o.DurationMinutes, &o.UsedFallback,
		&o.SubtotalCents, &o.TaxCents, &o.DeliveryFeeCents, &o.TotalCents,
		&o.PaymentIntentID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Create inserts an order and its item snapshot in one transaction
func (r *Repository) Create(ctx context.Context, o *Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (
			id, user_id, status, rider_id,
			delivery_street, delivery_city, delivery_postal_code, delivery_country,
			distance_km, duration_minutes, used_fallback,
			subtotal_cents, tax_cents, delivery_fee_cents, total_cents,
			payment_intent_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = tx.Exec(ctx, query,
		o.ID, o.UserID, o.Status, o.RiderID,
		o.DeliveryAddress.Street, o.DeliveryAddress.City,
		o.DeliveryAddress.PostalCode, o.DeliveryAddress.Country,
		o.DistanceKm, o.DurationMinutes, o.UsedFallback,
		o.SubtotalCents, o.TaxCents, o.DeliveryFeeCents, o.TotalCents,
		o.PaymentIntentID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create order")
	}

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, unit_price_cents, quantity)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, item.ProductID, item.ProductName, item.UnitPriceCents, item.Quantity,
		)
		if err != nil {
			return errors.Wrap(err, "failed to create order item")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit order")
	}

	return nil
}

// Get retrieves an order with its items
func (r *Repository) Get(ctx context.Context, id types.ID) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("order", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get order")
	}

	rows, err := r.pool.Query(ctx, `
		SELECT product_id, product_name, unit_price_cents, quantity
		FROM order_items WHERE order_id = $1`, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get order items")
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.UnitPriceCents, &item.Quantity); err != nil {
			return nil, errors.Wrap(err, "failed to scan order item")
		}
		o.Items = append(o.Items, item)
	}

	return o, nil
}

// Update saves the mutable fields of an order. The item snapshot is written
// once at creation and never changes.
func (r *Repository) Update(ctx context.Context, o *Order) error {
	query := `
		UPDATE orders SET
			status = $2, rider_id = $3,
			distance_km = $4, duration_minutes = $5, used_fallback = $6,
			tax_cents = $7, delivery_fee_cents = $8, total_cents = $9,
			payment_intent_id = $10, updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		o.ID, o.Status, o.RiderID,
		o.DistanceKm, o.DurationMinutes, o.UsedFallback,
		o.TaxCents, o.DeliveryFeeCents, o.TotalCents,
		o.PaymentIntentID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update order")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("order", o.ID.String())
	}

	return nil
}

// List lists orders with optional filters
func (r *Repository) List(ctx context.Context, filter ListOrdersFilter) ([]Order, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argNum))
		args = append(args, *filter.UserID)
		argNum++
	}

	if filter.RiderID != nil {
		conditions = append(conditions, fmt.Sprintf("rider_id = $%d", argNum))
		args = append(args, *filter.RiderID)
		argNum++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *filter.Status)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count orders")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, orderColumns, whereClause, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list orders")
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan order")
		}
		orders = append(orders, *o)
	}

	return orders, total, nil
}

package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/krishbavarva/freshcart/internal/shared/errors"
	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Repository provides database operations for products
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new catalog repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, name, description, category, barcode, image_url,
	price_cents, stock, active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	p := &Product{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.Barcode, &p.ImageURL,
		&p.PriceCents, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new product
func (r *Repository) Create(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (
			id, name, description, category, barcode, image_url,
			price_cents, stock, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Category, p.Barcode, p.ImageURL,
		p.PriceCents, p.Stock, p.Active,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("a product with this barcode already exists")
		}
		return errors.Wrap(err, "failed to create product")
	}

	return nil
}

// Get retrieves a product by ID
func (r *Repository) Get(ctx context.Context, id types.ID) (*Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("product", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get product")
	}
	return p, nil
}

// GetByBarcode retrieves a product by barcode
func (r *Repository) GetByBarcode(ctx context.Context, barcode string) (*Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE barcode = $1`, productColumns)

	p, err := scanProduct(r.pool.QueryRow(ctx, query, barcode))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("product", barcode)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get product by barcode")
	}
	return p, nil
}

// Update updates a product
func (r *Repository) Update(ctx context.Context, p *Product) error {
	query := `
		UPDATE products SET
			name = $2, description = $3, category = $4, image_url = $5,
			price_cents = $6, stock = $7, active = $8, updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Category, p.ImageURL,
		p.PriceCents, p.Stock, p.Active,
	)

	if err != nil {
		return errors.Wrap(err, "failed to update product")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("product", p.ID.String())
	}

	return nil
}

// Delete deletes a product
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete product")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("product", id.String())
	}

	return nil
}

// List lists products with optional filters
func (r *Repository) List(ctx context.Context, filter ListProductsFilter) ([]Product, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argNum))
		args = append(args, filter.Category)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	if filter.ActiveOnly {
		conditions = append(conditions, "active = TRUE")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count products")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY name
		LIMIT $%d OFFSET $%d`, productColumns, whereClause, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list products")
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan product")
		}
		products = append(products, *p)
	}

	return products, total, nil
}

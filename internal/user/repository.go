package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/krishbavarva/freshcart/internal/shared/errors"
	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Repository provides database operations for user accounts
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new user repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, first_name, last_name, role, phone,
	address_street, address_city, address_postal_code, address_country,
	created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.Phone,
		&u.Address.Street, &u.Address.City, &u.Address.PostalCode, &u.Address.Country,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new account
func (r *Repository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name, role, phone,
			address_street, address_city, address_postal_code, address_country
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.Phone,
		u.Address.Street, u.Address.City, u.Address.PostalCode, u.Address.Country,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("an account with this email already exists")
		}
		return errors.Wrap(err, "failed to create user")
	}

	return nil
}

// Get retrieves an account by ID
func (r *Repository) Get(ctx context.Context, id types.ID) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("user", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}
	return u, nil
}

// GetByEmail retrieves an account by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)

	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("user", email)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user by email")
	}
	return u, nil
}

// Update updates an account's profile fields and role
func (r *Repository) Update(ctx context.Context, u *User) error {
	query := `
		UPDATE users SET
			first_name = $2, last_name = $3, role = $4, phone = $5,
			address_street = $6, address_city = $7,
			address_postal_code = $8, address_country = $9,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		u.ID, u.FirstName, u.LastName, u.Role, u.Phone,
		u.Address.Street, u.Address.City, u.Address.PostalCode, u.Address.Country,
	)

	if err != nil {
		return errors.Wrap(err, "failed to update user")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("user", u.ID.String())
	}

	return nil
}

// Delete deletes an account
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete user")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("user", id.String())
	}

	return nil
}

// List lists accounts with optional filters
func (r *Repository) List(ctx context.Context, filter ListUsersFilter) ([]User, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argNum))
		args = append(args, *filter.Role)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)", argNum, argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM users %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count users")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, userColumns, whereClause, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan user")
		}
		users = append(users, *u)
	}

	return users, total, nil
}

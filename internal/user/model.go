package user

import (
	"time"

	"github.com/krishbavarva/freshcart/internal/shared/auth"
	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// User represents an account holder
type User struct {
	ID           types.ID  `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         auth.Role `json:"role"`
	Phone        string    `json:"phone,omitempty"`

	Address types.Address `json:"address"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName returns the user's full name
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// RegisterRequest is the request to create an account
type RegisterRequest struct {
	Email     string        `json:"email"`
	Password  string        `json:"password"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Phone     string        `json:"phone"`
	Address   types.Address `json:"address"`
}

// LoginRequest is the request to authenticate
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and the account
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UpdateProfileRequest is the request to update one's own profile
type UpdateProfileRequest struct {
	FirstName *string        `json:"first_name,omitempty"`
	LastName  *string        `json:"last_name,omitempty"`
	Phone     *string        `json:"phone,omitempty"`
	Address   *types.Address `json:"address,omitempty"`
}

// ChangeRoleRequest is the admin request to change an account's role
type ChangeRoleRequest struct {
	Role auth.Role `json:"role"`
}

// ListUsersFilter defines filters for listing accounts
type ListUsersFilter struct {
	Role   *auth.Role `json:"role,omitempty"`
	Search string     `json:"search,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}

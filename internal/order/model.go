package order

import (
	"time"

	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Status represents the order lifecycle state
type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusDelivering Status = "delivering"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// validTransitions maps each status to the states it may move to.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusPaid, StatusCancelled},
	StatusPaid:       {StatusDelivering, StatusCancelled},
	StatusDelivering: {StatusDelivered},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidStatus checks if a status string is known
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusPending, StatusPaid, StatusDelivering, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Item is an order line with the product snapshot taken at checkout. Later
// catalog edits never change what the customer paid.
type Item struct {
	ProductID      types.ID `json:"product_id"`
	ProductName    string   `json:"product_name"`
	UnitPriceCents int64    `json:"unit_price_cents"`
	Quantity       int      `json:"quantity"`
}

// Order represents a placed order
type Order struct {
	ID      types.ID  `json:"id"`
	UserID  types.ID  `json:"user_id"`
	Status  Status    `json:"status"`
	RiderID *types.ID `json:"rider_id,omitempty"`

	DeliveryAddress types.Address `json:"delivery_address"`
	DistanceKm      float64       `json:"distance_km"`
	DurationMinutes int           `json:"duration_minutes"`
	UsedFallback    bool          `json:"used_fallback"`

	Items            []Item `json:"items"`
	SubtotalCents    int64  `json:"subtotal_cents"`
	TaxCents         int64  `json:"tax_cents"`
	DeliveryFeeCents int64  `json:"delivery_fee_cents"`
	TotalCents       int64  `json:"total_cents"`

	PaymentIntentID string `json:"payment_intent_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckoutQuote is the priced preview of an order before it is placed.
type CheckoutQuote struct {
	SubtotalCents    int64   `json:"subtotal_cents"`
	TaxCents         int64   `json:"tax_cents"`
	DeliveryFeeCents int64   `json:"delivery_fee_cents"`
	TotalCents       int64   `json:"total_cents"`
	DistanceKm       float64 `json:"distance_km"`
	DurationMinutes  int     `json:"duration_minutes"`
	UsedFallback     bool    `json:"used_fallback"`
}

// CheckoutRequest carries the delivery address for quoting or placing an
// order. The cart contents and all prices come from the server.
type CheckoutRequest struct {
	Address types.Address `json:"address"`
}

// UpdateStatusRequest moves an order to a new status
type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

// ListOrdersFilter defines filters for listing orders
type ListOrdersFilter struct {
	UserID  *types.ID
	RiderID *types.ID
	Status  *Status
	Limit   int
	Offset  int
}

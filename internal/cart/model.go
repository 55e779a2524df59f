package cart

import (
	"time"

	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Item is a single cart line joined with its product snapshot.
type Item struct {
	ProductID   types.ID `json:"product_id"`
	ProductName string   `json:"product_name"`
	ImageURL    string   `json:"image_url,omitempty"`
	PriceCents  int64    `json:"price_cents"`
	Quantity    int      `json:"quantity"`
	Stock       int      `json:"stock"`

	AddedAt time.Time `json:"added_at"`
}

// LineTotalCents returns the price of the line.
func (i Item) LineTotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}

// Cart is a customer's current cart.
type Cart struct {
	UserID        types.ID `json:"user_id"`
	Items         []Item   `json:"items"`
	SubtotalCents int64    `json:"subtotal_cents"`
}

// Subtotal sums all line totals.
func Subtotal(items []Item) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotalCents()
	}
	return total
}

// SetItemRequest adds a product to the cart or changes its quantity.
type SetItemRequest struct {
	ProductID types.ID `json:"product_id"`
	Quantity  int      `json:"quantity"`
}

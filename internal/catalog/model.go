package catalog

import (
	"time"

	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Product represents a catalog item
type Product struct {
	ID          types.ID `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Barcode     string   `json:"barcode,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	PriceCents  int64    `json:"price_cents"`
	Stock       int      `json:"stock"`
	Active      bool     `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateProductRequest is the request to create a product
type CreateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Barcode     string `json:"barcode"`
	ImageURL    string `json:"image_url"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
}

// UpdateProductRequest is the request to update a product
type UpdateProductRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty"`
	Stock       *int    `json:"stock,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// ImportProductRequest is the manager request to import a product from the
// external food database by barcode, setting the local price and stock.
type ImportProductRequest struct {
	Barcode    string `json:"barcode"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
}

// ListProductsFilter defines filters for listing products
type ListProductsFilter struct {
	Category   string `json:"category,omitempty"`
	Search     string `json:"search,omitempty"`
	ActiveOnly bool   `json:"active_only,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

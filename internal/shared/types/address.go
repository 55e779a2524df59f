package types

import "strings"

// Address represents a delivery or billing address
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"` // free text, default "France"
}

// NewAddress creates a new address with France as default country
func NewAddress(street, city, postalCode string) Address {
	return Address{
		Street:     street,
		City:       city,
		PostalCode: postalCode,
		Country:    "France",
	}
}

// Text renders the address as a single free-form line suitable for a
// geocoding query.
func (a Address) Text() string {
	parts := make([]string, 0, 4)
	if a.Street != "" {
		parts = append(parts, a.Street)
	}
	if a.PostalCode != "" || a.City != "" {
		parts = append(parts, strings.TrimSpace(a.PostalCode+" "+a.City))
	}
	if a.Country != "" {
		parts = append(parts, a.Country)
	}
	return strings.Join(parts, ", ")
}

// IsComplete reports whether the fields needed for geocoding are present.
func (a Address) IsComplete() bool {
	return a.Street != "" && a.City != "" && a.Country != ""
}

// ContactInfo represents contact information
type ContactInfo struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Package payment integrates the external payment provider used to collect
// order totals. Amounts are always integer cents.
package payment

import (
	"context"
	"errors"
)

// IntentStatus is the provider-side lifecycle of a payment intent.
type IntentStatus string

const (
	StatusRequiresConfirmation IntentStatus = "requires_confirmation"
	StatusSucceeded            IntentStatus = "succeeded"
	StatusCanceled             IntentStatus = "canceled"
)

// ErrIntentNotFound is returned when the provider does not know the intent.
var ErrIntentNotFound = errors.New("payment: intent not found")

// ErrDeclined is returned when the provider refuses to confirm an intent.
var ErrDeclined = errors.New("payment: declined")

// Intent is a provider-side hold for an order total.
type Intent struct {
	ID           string       `json:"id"`
	AmountCents  int64        `json:"amount_cents"`
	Currency     string       `json:"currency"`
	Status       IntentStatus `json:"status"`
	ClientSecret string       `json:"client_secret,omitempty"`
}

// Provider creates and confirms payment intents.
type Provider interface {
	CreateIntent(ctx context.Context, amountCents int64, currency, reference string) (*Intent, error)
	ConfirmIntent(ctx context.Context, intentID string) error
	CancelIntent(ctx context.Context, intentID string) error
}

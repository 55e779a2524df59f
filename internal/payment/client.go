package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/krishbavarva/freshcart/internal/shared/config"
	"github.com/krishbavarva/freshcart/internal/shared/metrics"
)

// Client is an HTTP payment provider.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ Provider = (*Client)(nil)

// NewClient creates a payment client from config.
func NewClient(cfg config.PaymentConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    httpClient,
	}
}

type createIntentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
}

// CreateIntent creates a payment intent for the given amount.
func (c *Client) CreateIntent(ctx context.Context, amountCents int64, currency, reference string) (*Intent, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("payment: amount must be positive, got %d", amountCents)
	}

	body, err := json.Marshal(createIntentRequest{
		AmountCents: amountCents,
		Currency:    currency,
		Reference:   reference,
	})
	if err != nil {
		return nil, err
	}

	var intent Intent
	if err := c.do(ctx, http.MethodPost, "/v1/intents", body, &intent); err != nil {
		metrics.RecordPaymentIntent("create", "error")
		return nil, err
	}

	metrics.RecordPaymentIntent("create", "ok")
	return &intent, nil
}

// ConfirmIntent confirms a previously created intent, capturing the funds.
func (c *Client) ConfirmIntent(ctx context.Context, intentID string) error {
	err := c.do(ctx, http.MethodPost, "/v1/intents/"+intentID+"/confirm", nil, nil)
	if err != nil {
		metrics.RecordPaymentIntent("confirm", "error")
		return err
	}

	metrics.RecordPaymentIntent("confirm", "ok")
	return nil
}

// CancelIntent voids an intent that will not be captured.
func (c *Client) CancelIntent(ctx context.Context, intentID string) error {
	err := c.do(ctx, http.MethodPost, "/v1/intents/"+intentID+"/cancel", nil, nil)
	if err != nil {
		metrics.RecordPaymentIntent("cancel", "error")
		return err
	}

	metrics.RecordPaymentIntent("cancel", "ok")
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.RecordProviderRequest("payment", time.Since(start))
	if err != nil {
		return fmt.Errorf("payment request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrIntentNotFound
	case resp.StatusCode == http.StatusPaymentRequired:
		return ErrDeclined
	case resp.StatusCode >= http.StatusBadRequest:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("payment status %d: %s", resp.StatusCode, string(b))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("payment response: %w", err)
		}
	}
	return nil
}

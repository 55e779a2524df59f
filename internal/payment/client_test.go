package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishbavarva/freshcart/internal/shared/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.PaymentConfig{
		BaseURL:  srv.URL,
		APIKey:   "sk_test_123",
		Currency: "eur",
	}, srv.Client())
}

func TestCreateIntent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		var req createIntentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(2457), req.AmountCents)
		assert.Equal(t, "eur", req.Currency)

		json.NewEncoder(w).Encode(Intent{
			ID:          "pi_abc",
			AmountCents: req.AmountCents,
			Currency:    req.Currency,
			Status:      StatusRequiresConfirmation,
		})
	})

	intent, err := client.CreateIntent(context.Background(), 2457, "eur", "order-1")
	require.NoError(t, err)
	assert.Equal(t, "pi_abc", intent.ID)
	assert.Equal(t, StatusRequiresConfirmation, intent.Status)
}

func TestCreateIntentRejectsNonPositiveAmount(t *testing.T) {
	client := NewClient(config.PaymentConfig{BaseURL: "http://unused"}, nil)

	_, err := client.CreateIntent(context.Background(), 0, "eur", "order-1")
	assert.Error(t, err)
}

func TestConfirmIntentDeclined(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/intents/pi_abc/confirm", r.URL.Path)
		w.WriteHeader(http.StatusPaymentRequired)
	})

	err := client.ConfirmIntent(context.Background(), "pi_abc")
	assert.ErrorIs(t, err, ErrDeclined)
}

func TestConfirmIntentUnknown(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.ConfirmIntent(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestCancelIntent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/intents/pi_abc/cancel", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	err := client.CancelIntent(context.Background(), "pi_abc")
	assert.NoError(t, err)
}

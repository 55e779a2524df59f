package foodapi

import (
	"context"
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
	return NewClient(config.FoodAPIConfig{BaseURL: srv.URL, Enabled: true}, srv.Client())
}

func TestGetByBarcode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/product/3017620422003.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": 1,
			"product": {
				"code": "3017620422003",
				"product_name": "Nutella",
				"generic_name": "Hazelnut spread",
				"categories": "Spreads, Sweet spreads",
				"image_url": "https://images.example/nutella.jpg"
			}
		}`))
	})

	p, err := client.GetByBarcode(context.Background(), "3017620422003")
	require.NoError(t, err)
	assert.Equal(t, "3017620422003", p.Barcode)
	assert.Equal(t, "Nutella", p.Name)
	assert.Equal(t, "Hazelnut spread", p.Description)
	assert.Equal(t, "Spreads", p.Category)
	assert.Equal(t, "https://images.example/nutella.jpg", p.ImageURL)
}

func TestGetByBarcodeNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": 0, "product": {}}`))
	})

	_, err := client.GetByBarcode(context.Background(), "0000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByBarcodeHTTP404(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetByBarcode(context.Background(), "0000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByBarcodeServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetByBarcode(context.Background(), "3017620422003")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi/search.pl", r.URL.Path)
		assert.Equal(t, "oat milk", r.URL.Query().Get("search_terms"))
		w.Write([]byte(`{
			"products": [
				{"code": "111", "product_name": "Oat Drink", "categories": "Beverages"},
				{"code": "", "product_name": "broken entry"},
				{"code": "222", "product_name": ""}
			]
		}`))
	})

	results, err := client.Search(context.Background(), "oat milk", 20)
	require.NoError(t, err)

	// Entries without a barcode or a name are skipped.
	require.Len(t, results, 1)
	assert.Equal(t, "111", results[0].Barcode)
	assert.Equal(t, "Oat Drink", results[0].Name)
	assert.Equal(t, "Beverages", results[0].Category)
}

func TestFirstCategory(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Spreads, Sweet spreads", "Spreads"},
		{"Beverages", "Beverages"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, firstCategory(tt.in))
	}
}

package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishbavarva/freshcart/internal/geo"
)

func newTestHandler(geocoder geo.Geocoder, router geo.Router) *Handler {
	cfg := pinnedStore()
	svc := NewService(NewResolver(geocoder, router, cfg, testLogger()), cfg, testLogger())
	return NewHandler(svc)
}

func postQuote(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestQuoteDelivery(t *testing.T) {
	geocoder := &stubGeocoder{coords: map[string]geo.Coordinate{
		"10 Rue de Rivoli, 75001 Paris, France": {Lat: 48.850, Lng: 2.350},
	}}
	router := &stubRouter{leg: geo.Leg{DistanceMeters: 12300, DurationSeconds: 1500}}
	h := newTestHandler(geocoder, router)

	rec := postQuote(t, h, `{"address":{"street":"10 Rue de Rivoli","city":"Paris","postal_code":"75001","country":"France"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var quote Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, 5.00, quote.Fee)
	assert.InDelta(t, 12.3, quote.DistanceKm, 0.001)
}

func TestQuoteDeliveryIncompleteAddress(t *testing.T) {
	h := newTestHandler(&stubGeocoder{}, &stubRouter{})

	rec := postQuote(t, h, `{"address":{"street":"10 Rue de Rivoli"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteDeliveryAddressNotFound(t *testing.T) {
	h := newTestHandler(&stubGeocoder{coords: map[string]geo.Coordinate{}}, &stubRouter{})

	rec := postQuote(t, h, `{"address":{"street":"1 Nowhere Lane","city":"Atlantis","postal_code":"00000","country":"France"}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ADDRESS_NOT_FOUND", body["code"])
}

func TestQuoteDeliveryOutOfRange(t *testing.T) {
	geocoder := &stubGeocoder{coords: map[string]geo.Coordinate{
		"99 Route Lointaine, 89000 Auxerre, France": {Lat: 47.8, Lng: 3.57},
	}}
	router := &stubRouter{leg: geo.Leg{DistanceMeters: 148000, DurationSeconds: 6800}}
	h := newTestHandler(geocoder, router)

	rec := postQuote(t, h, `{"address":{"street":"99 Route Lointaine","city":"Auxerre","postal_code":"89000","country":"France"}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OUT_OF_RANGE", body["code"])
	assert.Contains(t, body["error"], "40 km")
}

func TestQuoteDeliveryProvidersDown(t *testing.T) {
	h := newTestHandler(&stubGeocoder{err: errors.New("unreachable")}, &stubRouter{})

	rec := postQuote(t, h, `{"address":{"street":"10 Rue de Rivoli","city":"Paris","postal_code":"75001","country":"France"}}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestToAppErrorGeneric(t *testing.T) {
	appErr := ToAppError(context.DeadlineExceeded)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
}

package delivery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishbavarva/freshcart/internal/geo"
	"github.com/krishbavarva/freshcart/internal/shared/config"
)

// stubGeocoder maps queries to fixed coordinates or errors.
type stubGeocoder struct {
	coords map[string]geo.Coordinate
	err    error
}

func (s *stubGeocoder) Geocode(ctx context.Context, query string) (geo.Coordinate, error) {
	if s.err != nil {
		return geo.Coordinate{}, s.err
	}
	c, ok := s.coords[query]
	if !ok {
		return geo.Coordinate{}, geo.ErrNoMatch
	}
	return c, nil
}

type stubRouter struct {
	leg geo.Leg
	err error
}

func (s *stubRouter) Route(ctx context.Context, origin, dest geo.Coordinate) (geo.Leg, error) {
	if s.err != nil {
		return geo.Leg{}, s.err
	}
	return s.leg, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Store pinned at (48.789, 2.455); no store geocoding needed.
func pinnedStore() config.DeliveryConfig {
	return config.DeliveryConfig{
		StoreStreet:     "14 Rue de la Station",
		StoreCity:       "Créteil",
		StorePostalCode: "94000",
		StoreCountry:    "France",
		StoreLat:        48.789,
		StoreLng:        2.455,
	}
}

func TestResolveUsesRoutingProvider(t *testing.T) {
	geocoder := &stubGeocoder{coords: map[string]geo.Coordinate{
		"10 Rue de Rivoli, 75001 Paris, France": {Lat: 48.850, Lng: 2.350},
	}}
	router := &stubRouter{leg: geo.Leg{DistanceMeters: 12300, DurationSeconds: 1500}}
	r := NewResolver(geocoder, router, pinnedStore(), testLogger())

	result, err := r.Resolve(context.Background(), "10 Rue de Rivoli, 75001 Paris, France")
	require.NoError(t, err)

	assert.True(t, result.Resolved)
	assert.False(t, result.UsedFallback)
	assert.InDelta(t, 12.3, result.DistanceKm, 0.001)
	assert.Equal(t, 25, result.DurationMinutes) // 1500s rounds up to 25min
}

func TestResolveRoundsDurationUp(t *testing.T) {
	geocoder := &stubGeocoder{coords: map[string]geo.Coordinate{
		"somewhere": {Lat: 48.850, Lng: 2.350},
	}}
	router := &stubRouter{leg: geo.Leg{DistanceMeters: 8000, DurationSeconds: 601}}
	r := NewResolver(geocoder, router, pinnedStore(), testLogger())

	result, err := r.Resolve(context.Background(), "somewhere")
	require.NoError(t, err)
	assert.Equal(t, 11, result.DurationMinutes)
}

func TestResolveAddressNotFound(t *testing.T) {
	geocoder := &stubGeocoder{coords: map[string]geo.Coordinate{}}
	router := &stubRouter{leg: geo.Leg{DistanceMeters: 1000, DurationSeconds: 60}}
	r := NewResolver(geocoder, router, pinnedStore(), testLogger())

	_, err := r.Resolve(context.Background(), "nowhere at all")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAddressNotFound))

	var notFound *AddressNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "nowhere at all", notFound.Address)
}

func TestResolveRoutingFailureFallsBackToHaversine(t *testing.T) {
	geocoder := &stubGeocoder{coords: map[string]geo.Coordinate{
		"central paris": {Lat: 48.850, Lng: 2.350},
	}}
	router := &stubRouter{err: errors.New("connection refused")}
	r := NewResolver(geocoder, router, pinnedStore(), testLogger())

	result, err := r.Resolve(context.Background(), "central paris")
	require.NoError(t, err)

	assert.True(t, result.Resolved)
	assert.True(t, result.UsedFallback)
	// Great-circle between (48.789, 2.455) and (48.850, 2.350).
	assert.InDelta(t, 10.2, result.DistanceKm, 0.5)
	assert.GreaterOrEqual(t, result.DurationMinutes, 15)
}

func TestResolveFallbackDurationFloor(t *testing.T) {
	// Destination ~1.5 km away: raw estimate is 3 minutes, floor is 15.
	geocoder := &stubGeocoder{coords: map[string]geo.Coordinate{
		"around the corner": {Lat: 48.800, Lng: 2.460},
	}}
	router := &stubRouter{err: errors.New("503 from provider")}
	r := NewResolver(geocoder, router, pinnedStore(), testLogger())

	result, err := r.Resolve(context.Background(), "around the corner")
	require.NoError(t, err)
	assert.True(t, result.UsedFallback)
	assert.Equal(t, 15, result.DurationMinutes)
}

func TestResolveGeocoderTransportFailure(t *testing.T) {
	geocoder := &stubGeocoder{err: errors.New("dial tcp: timeout")}
	router := &stubRouter{leg: geo.Leg{DistanceMeters: 1000, DurationSeconds: 60}}
	r := NewResolver(geocoder, router, pinnedStore(), testLogger())

	_, err := r.Resolve(context.Background(), "10 Rue de Rivoli, Paris")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllProvidersUnavailable))
	assert.False(t, errors.Is(err, ErrAddressNotFound))
}

func TestResolveGeocodesStoreWhenNotPinned(t *testing.T) {
	cfg := pinnedStore()
	cfg.StoreLat = 0
	cfg.StoreLng = 0

	geocoder := &stubGeocoder{coords: map[string]geo.Coordinate{
		cfg.StoreAddressText(): {Lat: 48.789, Lng: 2.455},
		"central paris":        {Lat: 48.850, Lng: 2.350},
	}}
	router := &stubRouter{leg: geo.Leg{DistanceMeters: 11500, DurationSeconds: 1140}}
	r := NewResolver(geocoder, router, cfg, testLogger())

	result, err := r.Resolve(context.Background(), "central paris")
	require.NoError(t, err)
	assert.InDelta(t, 11.5, result.DistanceKm, 0.001)
	assert.Equal(t, 19, result.DurationMinutes)
}

// --- Quote service ---

func TestQuoteEndToEnd(t *testing.T) {
	geocoder := &stubGeocoder{coords: map[string]geo.Coordinate{
		"10 Rue de Rivoli, 75001 Paris, France": {Lat: 48.850, Lng: 2.350},
	}}
	// Actual driving distance 12.3 km: second tier.
	router := &stubRouter{leg: geo.Leg{DistanceMeters: 12300, DurationSeconds: 1500}}
	cfg := pinnedStore()
	svc := NewService(NewResolver(geocoder, router, cfg, testLogger()), cfg, testLogger())

	quote, err := svc.Quote(context.Background(), "10 Rue de Rivoli, 75001 Paris, France")
	require.NoError(t, err)
	assert.Equal(t, 5.00, quote.Fee)
	assert.InDelta(t, 12.3, quote.DistanceKm, 0.001)
	assert.False(t, quote.UsedFallback)
}

func TestQuoteRejectsOutOfRange(t *testing.T) {
	geocoder := &stubGeocoder{coords: map[string]geo.Coordinate{
		"far away": {Lat: 49.3, Lng: 2.455},
	}}
	router := &stubRouter{leg: geo.Leg{DistanceMeters: 45000, DurationSeconds: 2700}}
	cfg := pinnedStore()
	svc := NewService(NewResolver(geocoder, router, cfg, testLogger()), cfg, testLogger())

	_, err := svc.Quote(context.Background(), "far away")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Contains(t, err.Error(), "40 km")
}

func TestQuoteComputationDefect(t *testing.T) {
	// Destination geocodes onto the store itself and routing is down, so
	// the great-circle fallback yields exactly zero.
	geocoder := &stubGeocoder{coords: map[string]geo.Coordinate{
		"the store": {Lat: 48.789, Lng: 2.455},
	}}
	router := &stubRouter{err: errors.New("routing down")}
	cfg := pinnedStore()
	svc := NewService(NewResolver(geocoder, router, cfg, testLogger()), cfg, testLogger())

	_, err := svc.Quote(context.Background(), "the store")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrComputationDefect))
	assert.False(t, errors.Is(err, ErrOutOfRange))
}

func TestQuoteTotalOutageFailsByDefault(t *testing.T) {
	geocoder := &stubGeocoder{err: errors.New("network unreachable")}
	router := &stubRouter{}
	cfg := pinnedStore()
	svc := NewService(NewResolver(geocoder, router, cfg, testLogger()), cfg, testLogger())

	_, err := svc.Quote(context.Background(), "anywhere")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllProvidersUnavailable))
}

func TestQuoteTotalOutageFlatQuoteWhenEnabled(t *testing.T) {
	geocoder := &stubGeocoder{err: errors.New("network unreachable")}
	router := &stubRouter{}
	cfg := pinnedStore()
	cfg.OutageFlatQuote = true
	svc := NewService(NewResolver(geocoder, router, cfg, testLogger()), cfg, testLogger())

	pricedBefore := deliveryQuoteCount(t, "priced")
	flatBefore := deliveryQuoteCount(t, "outage_flat")

	quote, err := svc.Quote(context.Background(), "anywhere")
	require.NoError(t, err)
	assert.Equal(t, 5.0, quote.DistanceKm)
	assert.Equal(t, 20, quote.DurationMinutes)
	assert.Equal(t, 3.00, quote.Fee)
	assert.True(t, quote.UsedFallback)

	// A flat outage quote must show up under its own metric outcome, not
	// blend in with normally priced quotes.
	assert.Equal(t, flatBefore+1, deliveryQuoteCount(t, "outage_flat"))
	assert.Equal(t, pricedBefore, deliveryQuoteCount(t, "priced"))
}

// deliveryQuoteCount reads the current value of the quote outcome counter
// from the default registry. Counters are process global, so callers
// compare against a before value instead of asserting absolutes.
func deliveryQuoteCount(t *testing.T, outcome string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "delivery_quotes_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

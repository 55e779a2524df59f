// Package delivery computes travel distance from the store to a customer
// address and prices the delivery fee from a fixed tier table. It is
// invoked at quote time and again at payment confirmation, so the server
// never trusts a client-supplied fee.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/krishbavarva/freshcart/internal/geo"
	"github.com/krishbavarva/freshcart/internal/shared/config"
	"github.com/krishbavarva/freshcart/internal/shared/metrics"
)

// Failure taxonomy. Callers branch with errors.Is; raw provider errors
// never cross this boundary.
var (
	// ErrAddressNotFound means an address could not be resolved to a
	// single point. Terminal: the user must correct their input.
	ErrAddressNotFound = errors.New("address not found")

	// ErrAllProvidersUnavailable means coordinates could not be obtained
	// at all, so not even the great-circle fallback can run.
	ErrAllProvidersUnavailable = errors.New("mapping providers unavailable")

	// ErrComputationDefect means a resolved result carried a
	// non-positive distance. Internal inconsistency, never free delivery.
	ErrComputationDefect = errors.New("distance computation defect")
)

// AddressNotFoundError carries the offending address text so it can be
// surfaced verbatim to the user.
type AddressNotFoundError struct {
	Address string
}

func (e *AddressNotFoundError) Error() string {
	return fmt.Sprintf("address not found: %q", e.Address)
}

func (e *AddressNotFoundError) Unwrap() error { return ErrAddressNotFound }

// DistanceResult is the outcome of one end-to-end distance resolution.
// When Resolved is false the distance and duration are meaningless and the
// caller must treat the request as failed, never as zero distance.
type DistanceResult struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
	Resolved        bool    `json:"resolved"`
	UsedFallback    bool    `json:"used_fallback"`
}

// Fallback duration model: average 30 km/h, floor of 15 minutes.
const (
	fallbackSpeedKmh       = 30.0
	fallbackMinDurationMin = 15
)

// Resolver turns a free-form delivery address into a driving distance from
// the store. Provider clients are injected once at process start; there is
// no shared mutable state beyond them, and no caching: every call
// re-resolves from scratch.
type Resolver struct {
	geocoder geo.Geocoder
	router   geo.Router

	storeAddress string
	storeCoord   *geo.Coordinate // set when config pins the store location

	logger *slog.Logger
}

// NewResolver creates a resolver with injected provider clients.
func NewResolver(geocoder geo.Geocoder, router geo.Router, cfg config.DeliveryConfig, logger *slog.Logger) *Resolver {
	r := &Resolver{
		geocoder:     geocoder,
		router:       router,
		storeAddress: cfg.StoreAddressText(),
		logger:       logger,
	}
	if cfg.StoreLat != 0 && cfg.StoreLng != 0 {
		r.storeCoord = &geo.Coordinate{Lat: cfg.StoreLat, Lng: cfg.StoreLng}
	}
	return r
}

// Resolve geocodes the store and the delivery address, then asks the
// routing provider for a driving leg. A routing failure degrades to the
// great-circle estimate; a geocoding no-match is terminal
// (ErrAddressNotFound); a geocoding transport failure means no coordinates
// exist to fall back on (ErrAllProvidersUnavailable).
func (r *Resolver) Resolve(ctx context.Context, addressText string) (DistanceResult, error) {
	origin, err := r.storeOrigin(ctx)
	if err != nil {
		return DistanceResult{}, err
	}

	dest, err := r.geocoder.Geocode(ctx, addressText)
	if err != nil {
		if errors.Is(err, geo.ErrNoMatch) {
			return DistanceResult{}, &AddressNotFoundError{Address: addressText}
		}
		r.logger.Error("delivery geocoding failed", "error", err)
		return DistanceResult{}, fmt.Errorf("%w: %v", ErrAllProvidersUnavailable, err)
	}

	leg, err := r.router.Route(ctx, origin, dest)
	if err != nil {
		// Routing down but both coordinates known: estimate instead.
		r.logger.Warn("routing failed, using great-circle fallback", "error", err)
		metrics.RecordRoutingFallback()

		distanceKm := geo.Haversine(origin, dest)
		return DistanceResult{
			DistanceKm:      distanceKm,
			DurationMinutes: fallbackDuration(distanceKm),
			Resolved:        true,
			UsedFallback:    true,
		}, nil
	}

	return DistanceResult{
		DistanceKm:      leg.DistanceMeters / 1000.0,
		DurationMinutes: int(math.Ceil(leg.DurationSeconds / 60.0)),
		Resolved:        true,
		UsedFallback:    false,
	}, nil
}

// storeOrigin returns the fixed store coordinate, geocoding the configured
// address when no coordinate is pinned. Re-resolving per call is accepted;
// correctness, not latency, is the contract here.
func (r *Resolver) storeOrigin(ctx context.Context) (geo.Coordinate, error) {
	if r.storeCoord != nil {
		return *r.storeCoord, nil
	}

	origin, err := r.geocoder.Geocode(ctx, r.storeAddress)
	if err != nil {
		if errors.Is(err, geo.ErrNoMatch) {
			return geo.Coordinate{}, &AddressNotFoundError{Address: r.storeAddress}
		}
		r.logger.Error("store geocoding failed", "error", err)
		return geo.Coordinate{}, fmt.Errorf("%w: %v", ErrAllProvidersUnavailable, err)
	}
	return origin, nil
}

func fallbackDuration(distanceKm float64) int {
	minutes := int(math.Ceil(distanceKm / fallbackSpeedKmh * 60.0))
	if minutes < fallbackMinDurationMin {
		return fallbackMinDurationMin
	}
	return minutes
}

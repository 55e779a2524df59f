// Package geo wraps the external geocoding and routing providers and the
// great-circle math used when routing is unavailable.
package geo

import (
	"context"
	"errors"
	"math"
)

// Coordinate is a (latitude, longitude) pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ErrNoMatch is returned by a Geocoder when a query resolves to zero
// results. It is distinct from transport errors: a query that the provider
// understood but could not match is a terminal, user-correctable condition.
var ErrNoMatch = errors.New("geocoding: no match for query")

// Geocoder resolves a free-form address to its best single match.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Coordinate, error)
}

// Leg is a driving route between two coordinates, in provider units.
type Leg struct {
	DistanceMeters  float64
	DurationSeconds float64
}

// Router computes a driving route between two coordinates.
type Router interface {
	Route(ctx context.Context, origin, dest Coordinate) (Leg, error)
}

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two coordinates in
// kilometers.
func Haversine(a, b Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dlat := radians(b.Lat - a.Lat)
	dlng := radians(b.Lng - a.Lng)

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

package delivery

import (
	"errors"
	"fmt"
)

// ErrOutOfRange means the distance is outside the serviceable radius.
var ErrOutOfRange = errors.New("distance out of delivery range")

// OutOfRangeError carries the computed distance so the refusal can explain
// itself to the user.
type OutOfRangeError struct {
	DistanceKm float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("distance %.1f km is outside the deliverable range (limit %.0f km)",
		e.DistanceKm, MaxDeliveryKm)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// MaxDeliveryKm is the maximum serviceable delivery radius.
const MaxDeliveryKm = 40.0

// tier is a distance band with a flat fee. Bands are evaluated by
// ascending upper bound, first match wins; the upper bound is inclusive,
// so exactly 10 km still prices at the first band.
type tier struct {
	maxKm float64
	fee   float64
}

var tiers = []tier{
	{maxKm: 10, fee: 3.00},
	{maxKm: 20, fee: 5.00},
	{maxKm: 30, fee: 8.00},
	{maxKm: 40, fee: 12.00},
}

// IsWithinRange reports whether a distance is deliverable. Zero and
// negative distances are never valid: they signal a resolver defect, not a
// free delivery.
func IsWithinRange(distanceKm float64) bool {
	return distanceKm > 0 && distanceKm <= MaxDeliveryKm
}

// FeeForDistance returns the flat fee for a distance, or OutOfRangeError.
// The distance is looked up as-is, with no interpolation or rounding.
func FeeForDistance(distanceKm float64) (float64, error) {
	if !IsWithinRange(distanceKm) {
		return 0, &OutOfRangeError{DistanceKm: distanceKm}
	}
	for _, t := range tiers {
		if distanceKm <= t.maxKm {
			return t.fee, nil
		}
	}
	return 0, &OutOfRangeError{DistanceKm: distanceKm}
}

package delivery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeForDistanceTiers(t *testing.T) {
	tests := []struct {
		name       string
		distanceKm float64
		fee        float64
	}{
		{"short hop", 0.5, 3.00},
		{"mid first tier", 5.0, 3.00},
		{"first tier upper bound inclusive", 10.0, 3.00},
		{"just past first tier", 10.01, 5.00},
		{"mid second tier", 12.3, 5.00},
		{"second tier upper bound", 20.0, 5.00},
		{"third tier", 25.0, 8.00},
		{"third tier upper bound", 30.0, 8.00},
		{"fourth tier", 35.0, 12.00},
		{"limit itself", 40.0, 12.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, err := FeeForDistance(tt.distanceKm)
			require.NoError(t, err)
			assert.Equal(t, tt.fee, fee)
		})
	}
}

func TestFeeForDistanceOutOfRange(t *testing.T) {
	for _, d := range []float64{0, -1, -0.01, 40.01, 45, 1000} {
		_, err := FeeForDistance(d)
		require.Error(t, err, "distance %v should not be priceable", d)
		assert.True(t, errors.Is(err, ErrOutOfRange))
	}
}

func TestOutOfRangeErrorMentionsLimit(t *testing.T) {
	_, err := FeeForDistance(45)
	require.Error(t, err)

	var oor *OutOfRangeError
	require.True(t, errors.As(err, &oor))
	assert.Equal(t, 45.0, oor.DistanceKm)
	assert.Contains(t, err.Error(), "40 km")
}

func TestIsWithinRange(t *testing.T) {
	tests := []struct {
		distanceKm float64
		within     bool
	}{
		{-5, false},
		{0, false},
		{0.01, true},
		{10, true},
		{39.99, true},
		{40, true},
		{40.01, false},
		{45, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.within, IsWithinRange(tt.distanceKm), "distance %v", tt.distanceKm)
	}
}

package distance

import (
	"route-optimizer-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineCost(t *testing.T) {
	h := NewHaversine(36) // 10 m/s
	a := domain.Coordinates{Lat: 0, Lon: 0}
	b := domain.Coordinates{Lat: 1, Lon: 0}

	ab, err := h.Cost(a, b)
	require.NoError(t, err)
	ba, err := h.Cost(b, a)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	assert.InDelta(t, 111_195, ab.DistanceMeters, 1)
	assert.InDelta(t, ab.DistanceMeters/10, ab.DurationSeconds, 1e-9)
}

func TestHaversineIdenticalPointsCostNothing(t *testing.T) {
	p := domain.Coordinates{Lat: 33.45, Lon: -112.07}

	c, err := NewHaversine(0).Cost(p, p)
	require.NoError(t, err)
	assert.Equal(t, domain.Cost{}, c)
}

func TestHaversineRejectsInvalidCoordinates(t *testing.T) {
	_, err := NewHaversine(40).Cost(domain.Coordinates{Lat: 91}, domain.Coordinates{})
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)

	_, err = NewHaversine(40).Cost(domain.Coordinates{}, domain.Coordinates{Lon: 181})
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)
}

func TestHaversineZeroValueUsesDefaultSpeed(t *testing.T) {
	c, err := Haversine{}.Cost(domain.Coordinates{}, domain.Coordinates{Lat: 1})
	require.NoError(t, err)
	assert.InDelta(t, c.DistanceMeters/(DefaultSpeedKPH/3.6), c.DurationSeconds, 1e-9)
}

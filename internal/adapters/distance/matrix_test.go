package distance

import (
	"route-optimizer-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixLookupAndFallback(t *testing.T) {
	hub := domain.Coordinates{Lat: 33.45, Lon: -112.07}
	a := domain.Coordinates{Lat: 33.50, Lon: -112.00}
	outside := domain.Coordinates{Lat: 33.60, Lon: -111.90}

	costs := [][]domain.Cost{
		{{}, {DistanceMeters: 1000, DurationSeconds: 300}},
		{{DistanceMeters: 1200, DurationSeconds: 320}, {}},
	}

	m, err := NewMatrix([]domain.Coordinates{hub, a}, costs, NewHaversine(40))
	require.NoError(t, err)

	c, err := m.Cost(hub, a)
	require.NoError(t, err)
	assert.Equal(t, domain.Cost{DistanceMeters: 1000, DurationSeconds: 300}, c)

	c, err = m.Cost(a, hub)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, c.DistanceMeters)

	c, err = m.Cost(a, a)
	require.NoError(t, err)
	assert.Equal(t, domain.Cost{}, c)

	want, _ := NewHaversine(40).Cost(hub, outside)
	c, err = m.Cost(hub, outside)
	require.NoError(t, err)
	assert.Equal(t, want, c)
}

func TestMatrixWithoutFallback(t *testing.T) {
	m, err := NewMatrix(nil, nil, nil)
	require.NoError(t, err)

	_, err = m.Cost(domain.Coordinates{}, domain.Coordinates{Lat: 1})
	assert.Error(t, err)
}

func TestNewMatrixShapeErrors(t *testing.T) {
	points := []domain.Coordinates{{}, {Lat: 1}}

	_, err := NewMatrix(points, [][]domain.Cost{{{}, {}}}, nil)
	assert.Error(t, err)

	_, err = NewMatrix(points, [][]domain.Cost{{{}, {}}, {{}}}, nil)
	assert.Error(t, err)

	_, err = NewMatrix([]domain.Coordinates{{Lat: 95}}, [][]domain.Cost{{{}}}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)
}

package services

import (
	"math"
	"route-optimizer-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var phoenix = domain.Coordinates{Lat: 33.4484, Lon: -112.0740}

// stopAtBearing places a stop about 11 km from the equatorial origin at the given bearing.
func stopAtBearing(id string, deg float64) domain.Stop {
	rad := deg * math.Pi / 180
	return domain.Stop{ID: id, Location: domain.Coordinates{Lat: 0.1 * math.Cos(rad), Lon: 0.1 * math.Sin(rad)}}
}

func TestSweepPartitionFiveStopsTwoVehicles(t *testing.T) {
	groups, err := SweepPartition(phoenix, randomStops(1, phoenix, 5), 2)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 3)
	assert.Len(t, groups[1], 2)
}

func TestSweepPartitionInvalidInput(t *testing.T) {
	_, err := SweepPartition(phoenix, nil, 2)
	assert.ErrorIs(t, err, domain.ErrEmptyStopSet)

	_, err = SweepPartition(phoenix, randomStops(1, phoenix, 3), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidVehicleCount)
}

func TestSweepPartitionMoreVehiclesThanStops(t *testing.T) {
	groups, err := SweepPartition(phoenix, randomStops(2, phoenix, 3), 10)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	for _, g := range groups {
		assert.Len(t, g, 1)
	}
}

func TestSweepPartitionCompleteAndBalanced(t *testing.T) {
	for n := 1; n <= 40; n += 3 {
		for v := 1; v <= 12; v++ {
			stops := randomStops(uint64(n*100+v), phoenix, n)

			groups, err := SweepPartition(phoenix, stops, v)
			require.NoError(t, err)
			require.Len(t, groups, min(n, v))

			seen := make(map[string]int, n)
			for _, g := range groups {
				assert.NotEmpty(t, g)
				assert.InDelta(t, float64(n)/float64(min(n, v)), float64(len(g)), 0.9999,
					"n=%d v=%d group size %d", n, v, len(g))
				for _, s := range g {
					seen[s.ID]++
				}
			}

			require.Len(t, seen, n, "n=%d v=%d", n, v)
			for id, c := range seen {
				assert.Equal(t, 1, c, "stop %s assigned %d times", id, c)
			}
		}
	}
}

func TestSweepPartitionDeterministic(t *testing.T) {
	stops := randomStops(7, phoenix, 25)

	a, err := SweepPartition(phoenix, stops, 4)
	require.NoError(t, err)
	b, err := SweepPartition(phoenix, stops, 4)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSweepPartitionEqualBearingsKeepInputOrder(t *testing.T) {
	depot := domain.Coordinates{}
	stops := []domain.Stop{
		{ID: "far", Location: domain.Coordinates{Lat: 0.2}},
		{ID: "near", Location: domain.Coordinates{Lat: 0.1}},
		{ID: "mid", Location: domain.Coordinates{Lat: 0.15}},
	}

	groups, err := SweepPartition(depot, stops, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"far", "near", "mid"}, stopIDs(groups[0]))
}

func TestSweepPartitionStartsAfterWidestGap(t *testing.T) {
	// A northern cluster straddles bearing zero; a southern cluster sits opposite.
	stops := []domain.Stop{
		stopAtBearing("n1", 350),
		stopAtBearing("s1", 178),
		stopAtBearing("n2", 2),
		stopAtBearing("s2", 180),
		stopAtBearing("n3", 5),
		stopAtBearing("s3", 182),
	}

	groups, err := SweepPartition(domain.Coordinates{}, stops, 2)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.ElementsMatch(t, []string{"s1", "s2", "s3"}, stopIDs(groups[0]))
	assert.ElementsMatch(t, []string{"n1", "n2", "n3"}, stopIDs(groups[1]))
}

func TestWidestGapStart(t *testing.T) {
	at := func(b []float64) func(int) float64 { return func(i int) float64 { return b[i] } }

	assert.Equal(t, 0, widestGapStart(1, at([]float64{42})))
	assert.Equal(t, 3, widestGapStart(5, at([]float64{10, 20, 30, 200, 210})))
	assert.Equal(t, 0, widestGapStart(4, at([]float64{0, 90, 180, 270})))
	assert.Equal(t, 0, widestGapStart(3, at([]float64{100, 110, 120})))
}

func TestSweepPartitionDoesNotMutateInput(t *testing.T) {
	stops := randomStops(3, phoenix, 6)
	before := append([]domain.Stop(nil), stops...)

	groups, err := SweepPartition(phoenix, stops, 2)
	require.NoError(t, err)
	groups[0][0].ID = "changed"

	assert.Equal(t, before, stops)
}

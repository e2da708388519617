package services

import (
	"errors"
	"route-optimizer-service/internal/domain"
	"slices"
)

// SweepPartition splits stops into min(vehicles, len(stops)) balanced groups by
// sweeping around the depot in bearing order.
//
// The sweep starts just after the widest angular gap between neighboring stops so
// that the first and last groups do not straddle a dense sector. Group sizes differ
// by at most one; the first len(stops) mod k groups take the extra stop.
// Equal bearings keep input order, so identical input always yields the same split.
func SweepPartition(depot domain.Coordinates, stops []domain.Stop, vehicles int) ([][]domain.Stop, error) {
	if len(stops) == 0 {
		return nil, domain.ErrEmptyStopSet
	}
	if vehicles <= 0 {
		return nil, domain.ErrInvalidVehicleCount
	}

	type bearingStop struct {
		bearing float64
		index   int
	}

	sorted := make([]bearingStop, len(stops))
	for i, s := range stops {
		sorted[i] = bearingStop{bearing: domain.Bearing(depot, s.Location), index: i}
	}

	slices.SortStableFunc(sorted, func(a, b bearingStop) int {
		switch {
		case a.bearing < b.bearing:
			return -1
		case a.bearing > b.bearing:
			return 1
		default:
			return 0
		}
	})

	start := widestGapStart(len(sorted), func(i int) float64 { return sorted[i].bearing })

	groups := min(vehicles, len(stops))
	base := len(stops) / groups
	extra := len(stops) % groups

	out := make([][]domain.Stop, 0, groups)
	pos := 0
	for g := 0; g < groups; g++ {
		size := base
		if g < extra {
			size++
		}

		group := make([]domain.Stop, 0, size)
		for k := 0; k < size; k++ {
			bs := sorted[(start+pos)%len(sorted)]
			group = append(group, stops[bs.index].Clone())
			pos++
		}
		out = append(out, group)
	}

	if pos != len(stops) {
		return nil, errors.New("sweep partition: not every stop was assigned")
	}

	return out, nil
}

// widestGapStart returns the position in a bearing-sorted sequence that follows the
// widest gap, including the wrap-around gap from the last bearing back to the first.
// Ties resolve to the lowest position.
func widestGapStart(n int, bearing func(int) float64) int {
	if n < 2 {
		return 0
	}

	best := 0
	widest := bearing(0) + 360 - bearing(n-1)
	for i := 1; i < n; i++ {
		if gap := bearing(i) - bearing(i-1); gap > widest {
			widest = gap
			best = i
		}
	}
	return best
}

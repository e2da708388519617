package services

import (
	"errors"
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/ports"
	"time"
)

const (
	// DefaultMaxIterations bounds the number of 2-opt passes over a single route.
	DefaultMaxIterations = 1000

	// DefaultSpeedKPH is used when SpeedKPH is unset.
	DefaultSpeedKPH = 40.0

	improvementEpsilon = 1e-9
)

// Sequencer orders the stops of one vehicle and computes arrival times.
//
// Construction is greedy nearest neighbor from the depot; the tour is then improved
// with 2-opt segment reversals that strictly shorten total distance. The depot is
// fixed at the head of the path and the return leg counts only when ReturnToDepot
// is set. Time windows are soft: early arrivals wait, late arrivals are flagged.
//
// A Sequencer holds no mutable state and may be shared between goroutines.
type Sequencer struct {
	Model ports.DistanceModel

	// SpeedKPH derives a leg duration when the model reports distance without one.
	SpeedKPH float64

	// ServiceTime applies to stops that do not declare their own service duration.
	ServiceTime time.Duration

	MaxIterations int
	ReturnToDepot bool
}

// Sequence returns a route that visits every stop exactly once, departing at startAt.
// The returned route has no ID or vehicle assigned.
func (s Sequencer) Sequence(depot domain.Coordinates, stops []domain.Stop, startAt time.Time) (*domain.Route, error) {
	route := &domain.Route{
		DepartAt:      startAt,
		Stops:         []domain.RouteStop{},
		ReturnToDepot: s.ReturnToDepot,
	}
	if len(stops) == 0 {
		return route, nil
	}

	costs, err := s.costTable(depot, stops)
	if err != nil {
		return nil, fmt.Errorf("sequence: %w", err)
	}

	order := nearestNeighbor(costs)
	order = twoOpt(costs, order, s.ReturnToDepot, s.maxIterations())

	clock := startAt
	prev := 0
	for _, node := range order {
		leg := costs[prev][node]
		stop := stops[node-1].Clone()

		clock = clock.Add(secondsToDuration(leg.DurationSeconds))
		rs := domain.RouteStop{
			Stop:               stop,
			LegDistanceMeters:  leg.DistanceMeters,
			LegDurationSeconds: leg.DurationSeconds,
		}

		// Early arrival waits for the window to open.
		if w := stop.Window; w != nil {
			if !w.Open.IsZero() && clock.Before(w.Open) {
				rs.WaitSeconds = w.Open.Sub(clock).Seconds()
				clock = w.Open
			}
			if !w.Close.IsZero() && clock.After(w.Close) {
				rs.Late = true
			}
		}
		rs.ArriveAt = clock

		clock = clock.Add(s.serviceFor(stop))
		route.TotalDistanceMeters += leg.DistanceMeters
		route.Stops = append(route.Stops, rs)
		prev = node
	}

	if s.ReturnToDepot {
		back := costs[prev][0]
		clock = clock.Add(secondsToDuration(back.DurationSeconds))
		route.TotalDistanceMeters += back.DistanceMeters
	}

	route.TotalDurationSeconds = clock.Sub(startAt).Seconds()
	return route, nil
}

// costTable evaluates the model for every ordered pair of [depot, stops...].
// Node 0 is the depot; node i is stops[i-1].
func (s Sequencer) costTable(depot domain.Coordinates, stops []domain.Stop) ([][]domain.Cost, error) {
	if s.Model == nil {
		return nil, errors.New("distance model is nil")
	}

	points := make([]domain.Coordinates, 0, len(stops)+1)
	points = append(points, depot)
	for _, st := range stops {
		points = append(points, st.Location)
	}

	table := make([][]domain.Cost, len(points))
	for i := range points {
		table[i] = make([]domain.Cost, len(points))
		for j := range points {
			if i == j {
				continue
			}
			c, err := s.Model.Cost(points[i], points[j])
			if err != nil {
				return nil, fmt.Errorf("cost %d->%d: %w", i, j, err)
			}
			if c.DurationSeconds == 0 && c.DistanceMeters > 0 {
				c.DurationSeconds = s.fallbackSeconds(c.DistanceMeters)
			}
			table[i][j] = c
		}
	}
	return table, nil
}

func (s Sequencer) fallbackSeconds(meters float64) float64 {
	speed := s.SpeedKPH
	if speed <= 0 {
		speed = DefaultSpeedKPH
	}
	return meters / (speed * 1000 / 3600)
}

func (s Sequencer) serviceFor(stop domain.Stop) time.Duration {
	if stop.ServiceDuration != nil {
		return *stop.ServiceDuration
	}
	return s.ServiceTime
}

func (s Sequencer) maxIterations() int {
	if s.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return s.MaxIterations
}

// nearestNeighbor builds a visiting order over nodes 1..n-1 starting from node 0.
// Equal distances resolve to the lower node, which is the earlier input stop.
func nearestNeighbor(costs [][]domain.Cost) []int {
	n := len(costs)
	visited := make([]bool, n)
	visited[0] = true

	order := make([]int, 0, n-1)
	cur := 0
	for len(order) < n-1 {
		best := -1
		for j := 1; j < n; j++ {
			if visited[j] {
				continue
			}
			if best == -1 || costs[cur][j].DistanceMeters < costs[cur][best].DistanceMeters {
				best = j
			}
		}
		visited[best] = true
		order = append(order, best)
		cur = best
	}
	return order
}

// twoOpt reverses segments of order while doing so strictly shortens the path,
// for at most maxPasses full passes. The input slice is not modified.
func twoOpt(costs [][]domain.Cost, order []int, closed bool, maxPasses int) []int {
	best := append([]int(nil), order...)
	if len(best) < 2 {
		return best
	}

	bestLen := pathLength(costs, best, closed)
	candidate := make([]int, len(best))

	for pass := 0; pass < maxPasses; pass++ {
		improved := false
		for i := 0; i < len(best)-1; i++ {
			for k := i + 1; k < len(best); k++ {
				copy(candidate, best)
				reverse(candidate[i : k+1])

				// Full recomputation keeps asymmetric road matrices correct.
				if l := pathLength(costs, candidate, closed); l < bestLen-improvementEpsilon {
					copy(best, candidate)
					bestLen = l
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

// pathLength is the distance from the depot through order, plus the return leg when closed.
func pathLength(costs [][]domain.Cost, order []int, closed bool) float64 {
	total := 0.0
	prev := 0
	for _, node := range order {
		total += costs[prev][node].DistanceMeters
		prev = node
	}
	if closed {
		total += costs[prev][0].DistanceMeters
	}
	return total
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

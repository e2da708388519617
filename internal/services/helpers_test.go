package services

import (
	"fmt"
	"math"
	"math/rand/v2"
	"route-optimizer-service/internal/domain"
	"sync"
	"time"
)

// planarModel treats lat/lon as a flat grid where one unit is 1000 m, driven at 10 m/s.
type planarModel struct{}

func (planarModel) Cost(a, b domain.Coordinates) (domain.Cost, error) {
	m := math.Hypot(a.Lat-b.Lat, a.Lon-b.Lon) * 1000
	return domain.Cost{DistanceMeters: m, DurationSeconds: m / 10}, nil
}

// distanceOnlyModel reports no durations.
type distanceOnlyModel struct{}

func (distanceOnlyModel) Cost(a, b domain.Coordinates) (domain.Cost, error) {
	return domain.Cost{DistanceMeters: math.Hypot(a.Lat-b.Lat, a.Lon-b.Lon) * 1000}, nil
}

type recordingMetrics struct {
	mu            sync.Mutex
	optimizations int
	transitions   map[string]int
	statusChanges []string
	dropped       int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{transitions: make(map[string]int)}
}

func (r *recordingMetrics) ObserveOptimization(time.Duration, int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.optimizations++
}

func (r *recordingMetrics) ObserveTransition(op, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions[op+"/"+result]++
}

func (r *recordingMetrics) ObserveRouteStatus(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusChanges = append(r.statusChanges, from+"->"+to)
}

func (r *recordingMetrics) EventDropped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped++
}

func (r *recordingMetrics) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitions[key]
}

func (r *recordingMetrics) droppedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// randomStops scatters n stops within roughly 20 km of the depot, reproducibly for a seed.
func randomStops(seed uint64, depot domain.Coordinates, n int) []domain.Stop {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	stops := make([]domain.Stop, n)
	for i := range stops {
		stops[i] = domain.Stop{
			ID: fmt.Sprintf("s%03d", i),
			Location: domain.Coordinates{
				Lat: depot.Lat + (rng.Float64()-0.5)*0.36,
				Lon: depot.Lon + (rng.Float64()-0.5)*0.44,
			},
		}
	}
	return stops
}

func stopIDs(stops []domain.Stop) []string {
	ids := make([]string, len(stops))
	for i, s := range stops {
		ids[i] = s.ID
	}
	return ids
}

func simpleRoute(id string, stopIDs ...string) *domain.Route {
	r := &domain.Route{ID: id}
	for _, s := range stopIDs {
		r.Stops = append(r.Stops, domain.RouteStop{Stop: domain.Stop{ID: s}})
	}
	return r
}

package services

import (
	"context"
	"errors"
	"fmt"
	"route-optimizer-service/internal/adapters/distance"
	"route-optimizer-service/internal/domain"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapGeocoder struct {
	mu    sync.Mutex
	known map[string]domain.Coordinates
	calls int
}

func (g *mapGeocoder) Resolve(_ context.Context, address string) (domain.Coordinates, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	c, ok := g.known[address]
	if !ok {
		return domain.Coordinates{}, fmt.Errorf("resolve %q: %w", address, domain.ErrUnresolvableAddress)
	}
	return c, nil
}

type haversineMatrix struct {
	err   error
	calls int
}

func (m *haversineMatrix) FetchMatrix(_ context.Context, points []domain.Coordinates) ([][]domain.Cost, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	h := distance.NewHaversine(40)
	out := make([][]domain.Cost, len(points))
	for i := range points {
		out[i] = make([]domain.Cost, len(points))
		for j := range points {
			c, err := h.Cost(points[i], points[j])
			if err != nil {
				return nil, err
			}
			out[i][j] = c
		}
	}
	return out, nil
}

type memoryRoutes struct {
	mu     sync.Mutex
	saved  map[string]*domain.Route
	next   int
	failAt int
}

func (r *memoryRoutes) SaveRoute(_ context.Context, route *domain.Route) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	if r.failAt > 0 && r.next == r.failAt {
		return "", errors.New("disk full")
	}
	if r.saved == nil {
		r.saved = make(map[string]*domain.Route)
	}
	id := fmt.Sprintf("route-%d", r.next)
	r.saved[id] = route.Clone()
	return id, nil
}

func (r *memoryRoutes) LoadRoute(_ context.Context, id string) (*domain.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	route, ok := r.saved[id]
	if !ok {
		return nil, domain.ErrRouteNotFound
	}
	return route.Clone(), nil
}

type memoryResults struct {
	mu      sync.Mutex
	results map[string]*domain.OptimizationResult
}

func (c *memoryResults) Get(_ context.Context, fp string) (*domain.OptimizationResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[fp]
	return r, ok, nil
}

func (c *memoryResults) Put(_ context.Context, fp string, r *domain.OptimizationResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = make(map[string]*domain.OptimizationResult)
	}
	c.results[fp] = r
	return nil
}

func coordStops(stops []domain.Stop) []PlanStop {
	out := make([]PlanStop, len(stops))
	for i, s := range stops {
		loc := s.Location
		out[i] = PlanStop{ID: s.ID, Location: &loc}
	}
	return out
}

func newTestPlanner() *Planner {
	return &Planner{
		Optimizer: newTestOptimizer(),
		Tracker:   NewTracker(),
		Fallback:  distance.NewHaversine(40),
		Profile:   "haversine",
	}
}

func TestPlannerRegistersRoutes(t *testing.T) {
	p := newTestPlanner()

	out, err := p.Plan(context.Background(), PlanRequest{
		Depot:        &phoenix,
		Stops:        coordStops(randomStops(8, phoenix, 7)),
		VehicleCount: 3,
		StartAt:      &depart,
	})
	require.NoError(t, err)
	assert.False(t, out.Cached)
	require.Len(t, out.Result.Routes, 3)

	for _, r := range out.Result.Routes {
		require.NotEmpty(t, r.ID)
		progress, err := p.Tracker.Get(r.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RouteCreated, progress.Status)
		assert.Len(t, progress.Stops, r.Load())
	}
}

func TestPlannerGeocodesAddresses(t *testing.T) {
	geo := &mapGeocoder{known: map[string]domain.Coordinates{
		"depot":  phoenix,
		"1 Main": {Lat: 33.50, Lon: -112.10},
		"2 Main": {Lat: 33.40, Lon: -112.00},
	}}
	repo := &memoryRoutes{}
	p := newTestPlanner()
	p.Geocoder = geo
	p.Routes = repo

	loc := domain.Coordinates{Lat: 33.45, Lon: -111.95}
	out, err := p.Plan(context.Background(), PlanRequest{
		DepotAddress: "depot",
		Stops: []PlanStop{
			{ID: "a", Address: "1 Main"},
			{ID: "b", Address: "2 Main"},
			{ID: "c", Location: &loc},
		},
		VehicleCount: 1,
		StartAt:      &depart,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, geo.calls)

	route := out.Result.Routes[0]
	assert.Equal(t, "route-1", route.ID)
	saved, err := repo.LoadRoute(context.Background(), "route-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, saved.StopIDs())
}

func TestPlannerUnresolvableAddress(t *testing.T) {
	p := newTestPlanner()
	p.Geocoder = &mapGeocoder{known: map[string]domain.Coordinates{}}

	_, err := p.Plan(context.Background(), PlanRequest{
		Depot:        &phoenix,
		Stops:        []PlanStop{{ID: "a", Address: "nowhere"}},
		VehicleCount: 1,
	})
	assert.ErrorIs(t, err, domain.ErrUnresolvableAddress)
	assert.Empty(t, p.Tracker.List())

	p.Geocoder = nil
	_, err = p.Plan(context.Background(), PlanRequest{
		Depot:        &phoenix,
		Stops:        []PlanStop{{ID: "a", Address: "somewhere"}},
		VehicleCount: 1,
	})
	assert.ErrorIs(t, err, domain.ErrUnresolvableAddress)
}

func TestPlannerRejectsBadInputEarly(t *testing.T) {
	p := newTestPlanner()

	_, err := p.Plan(context.Background(), PlanRequest{Depot: &phoenix, VehicleCount: 1})
	assert.ErrorIs(t, err, domain.ErrEmptyStopSet)

	_, err = p.Plan(context.Background(), PlanRequest{
		Depot: &phoenix,
		Stops: coordStops(randomStops(1, phoenix, 2)),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidVehicleCount)
}

func TestPlannerUsesResultCache(t *testing.T) {
	matrix := &haversineMatrix{}
	p := newTestPlanner()
	p.Matrix = matrix
	p.Cache = &memoryResults{}

	req := PlanRequest{
		Depot:        &phoenix,
		Stops:        coordStops(randomStops(4, phoenix, 6)),
		VehicleCount: 2,
		StartAt:      &depart,
	}

	first, err := p.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := p.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, matrix.calls)

	assert.Equal(t, first.Result.Routes[0].StopIDs(), second.Result.Routes[0].StopIDs())
	assert.NotEqual(t, first.Result.Routes[0].ID, second.Result.Routes[0].ID)
	assert.Len(t, p.Tracker.List(), 4)
}

func TestPlannerMatrixFailureFallsBack(t *testing.T) {
	matrix := &haversineMatrix{err: fmt.Errorf("ors: %w", domain.ErrUpstreamUnavailable)}
	cache := &memoryResults{}
	p := newTestPlanner()
	p.Matrix = matrix
	p.Cache = cache

	out, err := p.Plan(context.Background(), PlanRequest{
		Depot:        &phoenix,
		Stops:        coordStops(randomStops(4, phoenix, 3)),
		VehicleCount: 1,
		StartAt:      &depart,
	})
	require.NoError(t, err)
	assert.Len(t, out.Result.Routes, 1)
	assert.Empty(t, cache.results)
}

func TestPlannerRollsBackOnSaveFailure(t *testing.T) {
	p := newTestPlanner()
	p.Routes = &memoryRoutes{failAt: 2}

	_, err := p.Plan(context.Background(), PlanRequest{
		Depot:        &phoenix,
		Stops:        coordStops(randomStops(5, phoenix, 4)),
		VehicleCount: 2,
		StartAt:      &depart,
	})
	require.Error(t, err)
	assert.Empty(t, p.Tracker.List())
}

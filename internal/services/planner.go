package services

import (
	"context"
	"errors"
	"fmt"
	"route-optimizer-service/internal/adapters/distance"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/logger"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PlanStop is a stop as received at the boundary: either coordinates or an address.
type PlanStop struct {
	ID              string
	Address         string
	Location        *domain.Coordinates
	Window          *domain.TimeWindow
	ServiceDuration *time.Duration
}

type PlanRequest struct {
	DepotAddress  string
	Depot         *domain.Coordinates
	Stops         []PlanStop
	VehicleCount  int
	StartAt       *time.Time
	ReturnToDepot bool
}

type PlanOutcome struct {
	Result *domain.OptimizationResult
	Cached bool
}

// Planner resolves a boundary request into geocoded stops, runs the optimizer and
// hands every resulting route to persistence and the tracker.
//
// Geocoder, Matrix, Routes and Cache are optional. Without a geocoder every stop must
// carry coordinates; without a matrix provider the optimizer's own model is used.
type Planner struct {
	Optimizer *Optimizer
	Tracker   *Tracker

	Geocoder ports.Geocoder
	Matrix   ports.MatrixProvider
	Fallback ports.DistanceModel
	Routes   ports.RouteRepository
	Cache    ports.ResultCache

	// Profile names the distance settings in cache keys.
	Profile            string
	GeocodeParallelism int
	Now                func() time.Time
}

func (p *Planner) Plan(ctx context.Context, req PlanRequest) (_ *PlanOutcome, err error) {
	defer obs.Time(ctx, "planner.Plan")(&err)

	if p.Optimizer == nil || p.Tracker == nil {
		return nil, errors.New("plan: optimizer and tracker are required")
	}
	if len(req.Stops) == 0 {
		return nil, fmt.Errorf("plan: %w", domain.ErrEmptyStopSet)
	}
	if req.VehicleCount <= 0 {
		return nil, fmt.Errorf("plan: %w", domain.ErrInvalidVehicleCount)
	}

	depot, stops, err := p.resolve(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	startAt := p.now()
	if req.StartAt != nil {
		startAt = *req.StartAt
	}

	optReq := OptimizeRequest{
		Depot:         depot,
		Stops:         stops,
		VehicleCount:  req.VehicleCount,
		StartAt:       &startAt,
		ReturnToDepot: req.ReturnToDepot,
	}

	profile := p.Profile
	if p.Matrix != nil {
		profile += "+matrix"
	}
	fingerprint := Fingerprint(optReq, profile)

	result, cached := p.cached(ctx, fingerprint)
	if !cached {
		cacheable := true
		if p.Matrix != nil {
			model, err := p.matrixModel(ctx, depot, stops)
			if err != nil {
				// Road data is an optimization; straight-line costs still produce a valid plan.
				logger.Get().Warn("road matrix unavailable, using fallback model",
					zap.String("req_id", obs.RequestID(ctx)),
					zap.Error(err),
				)
				cacheable = false
			} else {
				optReq.Model = model
			}
		}

		result, err = p.Optimizer.Optimize(ctx, optReq)
		if err != nil {
			return nil, fmt.Errorf("plan: %w", err)
		}

		if cacheable && p.Cache != nil {
			if err := p.Cache.Put(ctx, fingerprint, result); err != nil {
				logger.Get().Warn("result cache put failed",
					zap.String("req_id", obs.RequestID(ctx)),
					zap.Error(err),
				)
			}
		}
	}

	out := &domain.OptimizationResult{
		Routes:               make([]*domain.Route, 0, len(result.Routes)),
		TotalDistanceMeters:  result.TotalDistanceMeters,
		TotalDurationSeconds: result.TotalDurationSeconds,
		VehiclesRequested:    result.VehiclesRequested,
		VehiclesUsed:         result.VehiclesUsed,
		StartAt:              result.StartAt,
	}
	for _, r := range result.Routes {
		route := r.Clone()
		route.ID = ""
		out.Routes = append(out.Routes, route)
	}

	if err := p.commit(ctx, out.Routes); err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	return &PlanOutcome{Result: out, Cached: cached}, nil
}

// commit persists and registers every route. On failure routes already registered
// by this call are removed from the tracker.
func (p *Planner) commit(ctx context.Context, routes []*domain.Route) error {
	registered := make([]string, 0, len(routes))
	rollback := func() {
		for _, id := range registered {
			_ = p.Tracker.Remove(id)
		}
	}

	for _, route := range routes {
		if p.Routes != nil {
			id, err := p.Routes.SaveRoute(ctx, route)
			if err != nil {
				rollback()
				return fmt.Errorf("save route for vehicle %d: %w", route.Vehicle.ID, err)
			}
			route.ID = id
		} else {
			route.ID = uuid.NewString()
		}

		id, err := p.Tracker.Register(route)
		if err != nil {
			rollback()
			return fmt.Errorf("register route for vehicle %d: %w", route.Vehicle.ID, err)
		}
		registered = append(registered, id)
	}
	return nil
}

func (p *Planner) cached(ctx context.Context, fingerprint string) (*domain.OptimizationResult, bool) {
	if p.Cache == nil {
		return nil, false
	}

	res, ok, err := p.Cache.Get(ctx, fingerprint)
	if err != nil {
		logger.Get().Warn("result cache get failed",
			zap.String("req_id", obs.RequestID(ctx)),
			zap.Error(err),
		)
		return nil, false
	}
	return res, ok && res != nil
}

// resolve geocodes the depot and any stop given only by address.
func (p *Planner) resolve(ctx context.Context, req PlanRequest) (domain.Coordinates, []domain.Stop, error) {
	var depot domain.Coordinates
	stops := make([]domain.Stop, len(req.Stops))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.geocodeParallelism())

	g.Go(func() error {
		if req.Depot != nil {
			depot = *req.Depot
			return nil
		}
		loc, err := p.geocode(gctx, req.DepotAddress)
		if err != nil {
			return fmt.Errorf("depot: %w", err)
		}
		depot = loc
		return nil
	})

	for i, ps := range req.Stops {
		g.Go(func() error {
			stop := domain.Stop{
				ID:              strings.TrimSpace(ps.ID),
				Window:          ps.Window,
				ServiceDuration: ps.ServiceDuration,
			}
			if ps.Location != nil {
				stop.Location = *ps.Location
			} else {
				loc, err := p.geocode(gctx, ps.Address)
				if err != nil {
					return fmt.Errorf("stop %q: %w", ps.ID, err)
				}
				stop.Location = loc
			}
			stops[i] = stop
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.Coordinates{}, nil, err
	}
	return depot, stops, nil
}

func (p *Planner) geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	if strings.TrimSpace(address) == "" {
		return domain.Coordinates{}, fmt.Errorf("no coordinates or address: %w", domain.ErrUnresolvableAddress)
	}
	if p.Geocoder == nil {
		return domain.Coordinates{}, fmt.Errorf("no geocoder configured for %q: %w", address, domain.ErrUnresolvableAddress)
	}
	return p.Geocoder.Resolve(ctx, address)
}

// matrixModel fetches road costs between the depot and every stop.
func (p *Planner) matrixModel(ctx context.Context, depot domain.Coordinates, stops []domain.Stop) (ports.DistanceModel, error) {
	points := make([]domain.Coordinates, 0, len(stops)+1)
	points = append(points, depot)
	for _, s := range stops {
		points = append(points, s.Location)
	}

	costs, err := p.Matrix.FetchMatrix(ctx, points)
	if err != nil {
		return nil, fmt.Errorf("fetch matrix: %w", err)
	}
	return distance.NewMatrix(points, costs, p.Fallback)
}

func (p *Planner) geocodeParallelism() int {
	if p.GeocodeParallelism <= 0 {
		return DefaultParallelism
	}
	return p.GeocodeParallelism
}

func (p *Planner) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

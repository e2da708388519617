package services

import (
	"context"
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/metrics"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultParallelism bounds how many vehicles are sequenced at once.
const DefaultParallelism = 4

type OptimizeRequest struct {
	Depot        domain.Coordinates
	Stops        []domain.Stop
	VehicleCount int

	// StartAt defaults to the optimizer clock when nil.
	StartAt       *time.Time
	ReturnToDepot bool

	// Model replaces the sequencer's distance model for this request when set.
	Model ports.DistanceModel
}

// Optimizer validates a request, partitions stops across vehicles and sequences each
// vehicle's stops. It is a pure computation over its inputs and safe for concurrent use.
type Optimizer struct {
	sequencer   Sequencer
	parallelism int
	now         func() time.Time
	metrics     metrics.Recorder
}

type OptimizerOption func(*Optimizer)

func WithOptimizerClock(now func() time.Time) OptimizerOption {
	return func(o *Optimizer) { o.now = now }
}

func WithParallelism(n int) OptimizerOption {
	return func(o *Optimizer) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

func WithOptimizerMetrics(r metrics.Recorder) OptimizerOption {
	return func(o *Optimizer) {
		if r != nil {
			o.metrics = r
		}
	}
}

func NewOptimizer(seq Sequencer, opts ...OptimizerOption) *Optimizer {
	o := &Optimizer{
		sequencer:   seq,
		parallelism: DefaultParallelism,
		now:         time.Now,
		metrics:     metrics.Nop{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize returns one route per used vehicle, ordered by vehicle index.
// Unused vehicles are omitted, so VehiclesUsed is min(VehicleCount, len(Stops)).
func (o *Optimizer) Optimize(ctx context.Context, req OptimizeRequest) (_ *domain.OptimizationResult, err error) {
	defer obs.Time(ctx, "optimizer.Optimize")(&err)

	began := time.Now()
	used := 0
	defer func() { o.metrics.ObserveOptimization(time.Since(began), len(req.Stops), used, err) }()

	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}

	startAt := o.now()
	if req.StartAt != nil {
		startAt = *req.StartAt
	}

	groups, err := SweepPartition(req.Depot, req.Stops, req.VehicleCount)
	if err != nil {
		return nil, fmt.Errorf("optimize: partition: %w", err)
	}

	seq := o.sequencer
	seq.ReturnToDepot = req.ReturnToDepot
	if req.Model != nil {
		seq.Model = req.Model
	}

	routes := make([]*domain.Route, len(groups))

	var g errgroup.Group
	g.SetLimit(o.parallelism)
	for i, group := range groups {
		g.Go(func() error {
			route, err := seq.Sequence(req.Depot, group, startAt)
			if err != nil {
				return fmt.Errorf("vehicle %d: %w", i+1, err)
			}
			route.Vehicle = domain.Vehicle{ID: i + 1, Index: i}
			routes[i] = route
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}

	result := &domain.OptimizationResult{
		Routes:            routes,
		VehiclesRequested: req.VehicleCount,
		VehiclesUsed:      len(routes),
		StartAt:           startAt,
	}
	for _, r := range routes {
		result.TotalDistanceMeters += r.TotalDistanceMeters
		result.TotalDurationSeconds += r.TotalDurationSeconds
	}
	used = result.VehiclesUsed

	return result, nil
}

func validateRequest(req OptimizeRequest) error {
	if len(req.Stops) == 0 {
		return domain.ErrEmptyStopSet
	}
	if req.VehicleCount <= 0 {
		return domain.ErrInvalidVehicleCount
	}
	if err := req.Depot.Validate(); err != nil {
		return fmt.Errorf("depot: %w", err)
	}

	seen := make(map[string]struct{}, len(req.Stops))
	for _, s := range req.Stops {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("stop %q: %w", s.ID, domain.ErrDuplicateStop)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

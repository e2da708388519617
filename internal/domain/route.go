package domain

import "time"

// Travel distance and duration between two points.
type Cost struct {
	DistanceMeters  float64
	DurationSeconds float64
}

// Represents a single stop in a sequenced route.
// ArriveAt is when service can begin: an early arrival waits for the window to open.
type RouteStop struct {
	Stop               Stop
	ArriveAt           time.Time
	WaitSeconds        float64
	Late               bool
	LegDistanceMeters  float64
	LegDurationSeconds float64
}

// Represents the planned delivery route for a single vehicle.
// The stop order is fixed once planning completes; only progress mutates afterwards.
type Route struct {
	ID                   string
	Vehicle              Vehicle
	DepartAt             time.Time
	Stops                []RouteStop
	TotalDistanceMeters  float64
	TotalDurationSeconds float64
	ReturnToDepot        bool
}

// Load is the number of delivery units carried; every stop demands one unit.
func (r *Route) Load() int { return len(r.Stops) }

// StopIDs returns the stop identifiers in route order.
func (r *Route) StopIDs() []string {
	ids := make([]string, 0, len(r.Stops))
	for _, s := range r.Stops {
		ids = append(ids, s.Stop.ID)
	}
	return ids
}

// Clone returns a deep copy that shares no mutable state with r.
func (r *Route) Clone() *Route {
	out := *r
	out.Stops = make([]RouteStop, len(r.Stops))
	for i, rs := range r.Stops {
		rs.Stop = rs.Stop.Clone()
		out.Stops[i] = rs
	}
	return &out
}

// Output of a single optimization run.
type OptimizationResult struct {
	Routes               []*Route
	TotalDistanceMeters  float64
	TotalDurationSeconds float64
	VehiclesRequested    int
	VehiclesUsed         int
	StartAt              time.Time
}

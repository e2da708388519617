package dto

import (
	"route-optimizer-service/internal/domain"
	"time"
)

func FromRoute(r *domain.Route) RouteResponse {
	out := RouteResponse{
		RouteID:              r.ID,
		VehicleID:            r.Vehicle.ID,
		DepartAt:             r.DepartAt,
		Load:                 r.Load(),
		TotalDistanceMeters:  r.TotalDistanceMeters,
		TotalDurationSeconds: r.TotalDurationSeconds,
		ReturnToDepot:        r.ReturnToDepot,
		Stops:                make([]RouteStopResponse, 0, len(r.Stops)),
	}
	for _, s := range r.Stops {
		rs := RouteStopResponse{
			StopID:             s.Stop.ID,
			Lat:                s.Stop.Location.Lat,
			Lon:                s.Stop.Location.Lon,
			ArriveAt:           s.ArriveAt,
			WaitSeconds:        s.WaitSeconds,
			Late:               s.Late,
			LegDistanceMeters:  s.LegDistanceMeters,
			LegDurationSeconds: s.LegDurationSeconds,
		}
		if w := s.Stop.Window; w != nil {
			rs.WindowOpen = timePtr(w.Open)
			rs.WindowClose = timePtr(w.Close)
		}
		out.Stops = append(out.Stops, rs)
	}
	return out
}

func FromResult(res *domain.OptimizationResult, cached bool) PlanResponse {
	out := PlanResponse{
		Routes:               make([]RouteResponse, 0, len(res.Routes)),
		TotalDistanceMeters:  res.TotalDistanceMeters,
		TotalDurationSeconds: res.TotalDurationSeconds,
		VehiclesRequested:    res.VehiclesRequested,
		VehiclesUsed:         res.VehiclesUsed,
		StartAt:              res.StartAt,
		Cached:               cached,
	}
	for _, r := range res.Routes {
		out.Routes = append(out.Routes, FromRoute(r))
	}
	return out
}

func FromProgress(p *domain.RouteProgress) ProgressResponse {
	out := ProgressResponse{
		RouteID:           p.RouteID,
		Status:            string(p.Status),
		LocationUpdatedAt: p.LocationUpdatedAt,
		Stops:             make([]StopProgressResponse, 0, len(p.Stops)),
		Counts:            make(map[string]int),
		CancelReason:      p.CancelReason,
		UpdatedAt:         p.UpdatedAt,
		Version:           p.Version,
	}
	if p.DriverLocation != nil {
		out.DriverLocation = &CoordinatesBody{Lat: p.DriverLocation.Lat, Lon: p.DriverLocation.Lon}
	}
	for _, s := range p.Stops {
		out.Stops = append(out.Stops, StopProgressResponse{
			StopID:        s.StopID,
			Status:        string(s.Status),
			UpdatedAt:     s.UpdatedAt,
			FailureReason: s.FailureReason,
		})
	}
	for status, n := range p.Counts() {
		out.Counts[string(status)] = n
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"route-optimizer-service/internal/api/dto"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/services"
	"strings"
	"time"
)

type PlanHandler struct {
	Planner             *services.Planner
	DefaultDepotAddress string
	DefaultVehicleCount int
	MaxVehicleCount     int
	Now                 func() time.Time
}

// Plan resolves, optimizes and registers routes for one batch of stops.
func (h *PlanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req dto.PlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	svcReq, err := h.toServiceRequest(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.Planner.Plan(r.Context(), svcReq)
	if err != nil {
		writeDomainError(w, r, "plan", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.FromResult(out.Result, out.Cached))
}

func (h *PlanHandler) toServiceRequest(req dto.PlanRequest) (services.PlanRequest, error) {
	vehicles := h.DefaultVehicleCount
	if req.VehicleCount != nil {
		vehicles = *req.VehicleCount
	}
	if h.MaxVehicleCount > 0 && vehicles > h.MaxVehicleCount {
		return services.PlanRequest{}, fmt.Errorf("vehicle_count must be between 1 and %d", h.MaxVehicleCount)
	}

	loc := time.UTC
	if tz := strings.TrimSpace(req.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return services.PlanRequest{}, fmt.Errorf("unknown timezone %q", tz)
		}
		loc = l
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	startAt, day, err := parseStart(req.StartDate, req.StartTime, now().In(loc))
	if err != nil {
		return services.PlanRequest{}, err
	}

	out := services.PlanRequest{
		DepotAddress:  strings.TrimSpace(req.DepotAddress),
		VehicleCount:  vehicles,
		StartAt:       startAt,
		ReturnToDepot: req.ReturnToDepot,
		Stops:         make([]services.PlanStop, 0, len(req.Stops)),
	}
	if req.Depot != nil {
		out.Depot = &domain.Coordinates{Lat: req.Depot.Lat, Lon: req.Depot.Lon}
	} else if out.DepotAddress == "" {
		out.DepotAddress = h.DefaultDepotAddress
	}

	for i, s := range req.Stops {
		stop, err := toPlanStop(s, day)
		if err != nil {
			return services.PlanRequest{}, fmt.Errorf("stops[%d]: %w", i, err)
		}
		out.Stops = append(out.Stops, stop)
	}

	return out, nil
}

func toPlanStop(s dto.PlanStopRequest, day time.Time) (services.PlanStop, error) {
	out := services.PlanStop{
		ID:      strings.TrimSpace(s.ID),
		Address: strings.TrimSpace(s.Address),
	}

	switch {
	case s.Lat != nil && s.Lon != nil:
		out.Location = &domain.Coordinates{Lat: *s.Lat, Lon: *s.Lon}
	case s.Lat != nil || s.Lon != nil:
		return out, errors.New("lat and lon must be given together")
	case out.Address == "":
		return out, errors.New("either lat/lon or address is required")
	}

	if s.WindowOpen != "" || s.WindowClose != "" {
		w := &domain.TimeWindow{}
		var err error
		if s.WindowOpen != "" {
			if w.Open, err = clockOn(day, s.WindowOpen); err != nil {
				return out, fmt.Errorf("window_open: %w", err)
			}
		}
		if s.WindowClose != "" {
			if w.Close, err = clockOn(day, s.WindowClose); err != nil {
				return out, fmt.Errorf("window_close: %w", err)
			}
		}
		out.Window = w
	}

	if s.ServiceMinutes != nil {
		if *s.ServiceMinutes < 0 {
			return out, errors.New("service_minutes must not be negative")
		}
		d := time.Duration(*s.ServiceMinutes * float64(time.Minute))
		out.ServiceDuration = &d
	}

	return out, nil
}

// parseStart combines "YYYY-MM-DD" and "HH:MM" in now's location.
// Both empty means "now" and yields a nil start. A missing date is today; a missing
// time is the current minute. The returned day anchors time windows.
func parseStart(date, clock string, now time.Time) (*time.Time, time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if date == "" && clock == "" {
		return nil, today, nil
	}

	day := today
	if date != "" {
		d, err := time.ParseInLocation(time.DateOnly, date, now.Location())
		if err != nil {
			return nil, today, fmt.Errorf("start_date must be YYYY-MM-DD")
		}
		day = d
	}

	if clock == "" {
		clock = now.Format("15:04")
	}
	start, err := clockOn(day, clock)
	if err != nil {
		return nil, day, fmt.Errorf("start_time: %w", err)
	}
	return &start, day, nil
}

func clockOn(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, fmt.Errorf("%q must be HH:MM", hhmm)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

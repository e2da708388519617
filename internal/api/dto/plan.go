package dto

import "time"

type CoordinatesBody struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PlanStopRequest identifies a stop by coordinates or by address.
// Window bounds are "HH:MM" on the plan's start date.
type PlanStopRequest struct {
	ID             string   `json:"id"`
	Lat            *float64 `json:"lat"`
	Lon            *float64 `json:"lon"`
	Address        string   `json:"address"`
	WindowOpen     string   `json:"window_open"`
	WindowClose    string   `json:"window_close"`
	ServiceMinutes *float64 `json:"service_minutes"`
}

type PlanRequest struct {
	Depot         *CoordinatesBody  `json:"depot"`
	DepotAddress  string            `json:"depot_address"`
	VehicleCount  *int              `json:"vehicle_count"`
	StartDate     string            `json:"start_date"`
	StartTime     string            `json:"start_time"`
	Timezone      string            `json:"timezone"`
	ReturnToDepot bool              `json:"return_to_depot"`
	Stops         []PlanStopRequest `json:"stops"`
}

type RouteStopResponse struct {
	StopID             string     `json:"stop_id"`
	Lat                float64    `json:"lat"`
	Lon                float64    `json:"lon"`
	ArriveAt           time.Time  `json:"arrive_at"`
	WaitSeconds        float64    `json:"wait_seconds"`
	Late               bool       `json:"late"`
	LegDistanceMeters  float64    `json:"leg_distance_meters"`
	LegDurationSeconds float64    `json:"leg_duration_seconds"`
	WindowOpen         *time.Time `json:"window_open,omitempty"`
	WindowClose        *time.Time `json:"window_close,omitempty"`
}

type RouteResponse struct {
	RouteID              string              `json:"route_id"`
	VehicleID            int                 `json:"vehicle_id"`
	DepartAt             time.Time           `json:"depart_at"`
	Load                 int                 `json:"load"`
	TotalDistanceMeters  float64             `json:"total_distance_meters"`
	TotalDurationSeconds float64             `json:"total_duration_seconds"`
	ReturnToDepot        bool                `json:"return_to_depot"`
	Stops                []RouteStopResponse `json:"stops"`
}

type PlanResponse struct {
	Routes               []RouteResponse `json:"routes"`
	TotalDistanceMeters  float64         `json:"total_distance_meters"`
	TotalDurationSeconds float64         `json:"total_duration_seconds"`
	VehiclesRequested    int             `json:"vehicles_requested"`
	VehiclesUsed         int             `json:"vehicles_used"`
	StartAt              time.Time       `json:"start_at"`
	Cached               bool            `json:"cached"`
}

package dto

import "time"

type StopProgressResponse struct {
	StopID        string    `json:"stop_id"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

type ProgressResponse struct {
	RouteID           string                 `json:"route_id"`
	Status            string                 `json:"status"`
	DriverLocation    *CoordinatesBody       `json:"driver_location"`
	LocationUpdatedAt *time.Time             `json:"location_updated_at"`
	Stops             []StopProgressResponse `json:"stops"`
	Counts            map[string]int         `json:"counts"`
	CancelReason      string                 `json:"cancel_reason,omitempty"`
	UpdatedAt         time.Time              `json:"updated_at"`
	Version           uint64                 `json:"version"`

	// Archived is set when the route is no longer tracked and was read from the archive.
	Archived bool           `json:"archived,omitempty"`
	Plan     *RouteResponse `json:"plan,omitempty"`
}

type ListProgressResponse struct {
	Routes []ProgressResponse `json:"routes"`
}

type LocationRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type StopUpdateRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

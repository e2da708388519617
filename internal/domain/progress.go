package domain

import (
	"fmt"
	"strings"
	"time"
)

type RouteStatus string

const (
	RouteCreated    RouteStatus = "CREATED"
	RouteDispatched RouteStatus = "DISPATCHED"
	RouteInProgress RouteStatus = "IN_PROGRESS"
	RouteCompleted  RouteStatus = "COMPLETED"
	RouteCancelled  RouteStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed.
func (s RouteStatus) Terminal() bool {
	return s == RouteCompleted || s == RouteCancelled
}

// Active reports whether the route accepts driver updates.
func (s RouteStatus) Active() bool {
	return s == RouteDispatched || s == RouteInProgress
}

type StopStatus string

const (
	StopPending   StopStatus = "PENDING"
	StopEnRoute   StopStatus = "EN_ROUTE"
	StopDelivered StopStatus = "DELIVERED"
	StopFailed    StopStatus = "FAILED"
)

func (s StopStatus) Terminal() bool {
	return s == StopDelivered || s == StopFailed
}

// ParseStopStatus accepts the canonical names case-insensitively.
func ParseStopStatus(s string) (StopStatus, error) {
	switch st := StopStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StopPending, StopEnRoute, StopDelivered, StopFailed:
		return st, nil
	default:
		return "", fmt.Errorf("parse stop status %q: %w", s, ErrInvalidStopStatus)
	}
}

// Delivery outcome of one stop on a dispatched route.
type StopProgress struct {
	StopID        string
	Status        StopStatus
	UpdatedAt     time.Time
	FailureReason string
}

// Live execution state of a dispatched route.
type RouteProgress struct {
	RouteID           string
	Status            RouteStatus
	DriverLocation    *Coordinates
	LocationUpdatedAt *time.Time
	Stops             []StopProgress
	CancelReason      string
	UpdatedAt         time.Time
	Version           uint64
}

// Clone returns a deep copy so snapshots never alias tracker state.
func (p *RouteProgress) Clone() *RouteProgress {
	out := *p
	if p.DriverLocation != nil {
		loc := *p.DriverLocation
		out.DriverLocation = &loc
	}
	if p.LocationUpdatedAt != nil {
		at := *p.LocationUpdatedAt
		out.LocationUpdatedAt = &at
	}
	out.Stops = make([]StopProgress, len(p.Stops))
	copy(out.Stops, p.Stops)
	return &out
}

// Counts returns the number of stops per status.
func (p *RouteProgress) Counts() map[StopStatus]int {
	out := make(map[StopStatus]int, 4)
	for _, s := range p.Stops {
		out[s.Status]++
	}
	return out
}

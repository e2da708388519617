package domain

import (
	"fmt"
	"strings"
	"time"
)

// Optional earliest/latest acceptable arrival interval for a Stop.
// A zero Open or Close leaves that side unbounded.
type TimeWindow struct {
	Open  time.Time
	Close time.Time
}

// Represents a single delivery location to be visited.
// Stops are immutable once an optimization run starts; demand is implicitly one unit.
type Stop struct {
	ID              string
	Location        Coordinates
	Window          *TimeWindow
	ServiceDuration *time.Duration
}

func (s Stop) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrMissingStopID
	}
	if err := s.Location.Validate(); err != nil {
		return fmt.Errorf("stop %q: %w", s.ID, err)
	}
	if w := s.Window; w != nil && !w.Open.IsZero() && !w.Close.IsZero() && w.Close.Before(w.Open) {
		return fmt.Errorf("stop %q: %w", s.ID, ErrInvalidTimeWindow)
	}
	if s.ServiceDuration != nil && *s.ServiceDuration < 0 {
		return fmt.Errorf("stop %q: %w", s.ID, ErrInvalidServiceTime)
	}
	return nil
}

// Clone copies the optional fields so the result shares nothing with s.
func (s Stop) Clone() Stop {
	out := s
	if s.Window != nil {
		w := *s.Window
		out.Window = &w
	}
	if s.ServiceDuration != nil {
		d := *s.ServiceDuration
		out.ServiceDuration = &d
	}
	return out
}

// Delivery vehicle identified by a 1-based ID and its 0-based ordinal.
type Vehicle struct {
	ID    int
	Index int
}

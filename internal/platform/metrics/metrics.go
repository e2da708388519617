// Package metrics records optimizer and tracker instrumentation.
package metrics

import "time"

// Outcomes reported for tracker mutations.
const (
	ResultApplied  = "applied"
	ResultNoop     = "noop"
	ResultRejected = "rejected"
)

// Recorder receives instrumentation from the optimizer and the tracker.
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveOptimization(d time.Duration, stops, vehiclesUsed int, err error)
	ObserveTransition(op, result string)
	ObserveRouteStatus(from, to string)
	EventDropped()
}

// Nop discards everything.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) ObserveOptimization(time.Duration, int, int, error) {}
func (Nop) ObserveTransition(string, string)                   {}
func (Nop) ObserveRouteStatus(string, string)                  {}
func (Nop) EventDropped()                                      {}

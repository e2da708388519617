package domain

import "errors"

// Kind classifies core errors so boundaries can map them without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindNotFound
	KindInvalidStateTransition
	KindUpstreamUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindInvalidStateTransition:
		return "invalid_state_transition"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	default:
		return "unknown"
	}
}

// Error is a classified core error. Sentinels below are compared with errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrEmptyStopSet          = &Error{Kind: KindInvalidInput, Code: "empty_stop_set", Message: "stop set is empty"}
	ErrInvalidVehicleCount   = &Error{Kind: KindInvalidInput, Code: "invalid_vehicle_count", Message: "vehicle count must be positive"}
	ErrInvalidCoordinate     = &Error{Kind: KindInvalidInput, Code: "invalid_coordinate", Message: "coordinate out of range"}
	ErrDuplicateStop         = &Error{Kind: KindInvalidInput, Code: "duplicate_stop", Message: "stop id appears more than once"}
	ErrMissingStopID         = &Error{Kind: KindInvalidInput, Code: "missing_stop_id", Message: "stop id is required"}
	ErrInvalidTimeWindow     = &Error{Kind: KindInvalidInput, Code: "invalid_time_window", Message: "time window closes before it opens"}
	ErrInvalidServiceTime    = &Error{Kind: KindInvalidInput, Code: "invalid_service_time", Message: "service duration must not be negative"}
	ErrInvalidStopStatus     = &Error{Kind: KindInvalidInput, Code: "invalid_stop_status", Message: "unknown stop status"}
	ErrRouteNotFound         = &Error{Kind: KindNotFound, Code: "route_not_found", Message: "route not found"}
	ErrStopNotFound          = &Error{Kind: KindNotFound, Code: "stop_not_found", Message: "stop not found"}
	ErrRouteExists           = &Error{Kind: KindInvalidStateTransition, Code: "route_exists", Message: "route already registered"}
	ErrRouteNotActive        = &Error{Kind: KindInvalidStateTransition, Code: "route_not_active", Message: "route is not active"}
	ErrInvalidStopTransition = &Error{Kind: KindInvalidStateTransition, Code: "invalid_stop_transition", Message: "stop status transition not allowed"}
	ErrUnresolvableAddress   = &Error{Kind: KindInvalidInput, Code: "unresolvable_address", Message: "address could not be resolved"}
	ErrUpstreamUnavailable   = &Error{Kind: KindUpstreamUnavailable, Code: "upstream_unavailable", Message: "upstream service unavailable"}
)

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the machine-readable code of the first classified error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

package services

import (
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/logger"
	"route-optimizer-service/internal/platform/metrics"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// DefaultSubscriberBuffer is the channel capacity handed to each subscriber.
const DefaultSubscriberBuffer = 64

type EventType string

const (
	EventRegistered      EventType = "registered"
	EventDispatched      EventType = "dispatched"
	EventLocationUpdated EventType = "location_updated"
	EventStopUpdated     EventType = "stop_updated"
	EventCompleted       EventType = "completed"
	EventCancelled       EventType = "cancelled"
	EventRemoved         EventType = "removed"
	EventPurged          EventType = "purged"
)

// Event describes one applied mutation. Progress is a snapshot owned by the receiver.
type Event struct {
	Type     EventType
	RouteID  string
	StopID   string
	Progress *domain.RouteProgress
	At       time.Time
}

type routeEntry struct {
	mu       sync.Mutex
	progress *domain.RouteProgress
	removed  bool
}

// Tracker holds the live progress of every registered route.
//
// Mutations of one route are serialized by that route's lock; different routes never
// block each other. Every mutation runs against a copy that replaces the stored state
// only on success, so a rejected call leaves no trace. Reads return deep copies.
type Tracker struct {
	routes *xsync.Map[string, *routeEntry]

	subscribers      *xsync.Map[uint64, *subscriber]
	nextSubscriberID atomic.Uint64

	now     func() time.Time
	metrics metrics.Recorder
}

type TrackerOption func(*Tracker)

func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

func WithTrackerMetrics(r metrics.Recorder) TrackerOption {
	return func(t *Tracker) {
		if r != nil {
			t.metrics = r
		}
	}
}

func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		routes:      xsync.NewMap[string, *routeEntry](),
		subscribers: xsync.NewMap[uint64, *subscriber](),
		now:         time.Now,
		metrics:     metrics.Nop{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register starts tracking a planned route in CREATED with every stop PENDING.
// A route without an ID is assigned a new UUID. The route's stop order is copied
// and never changes afterwards.
func (t *Tracker) Register(route *domain.Route) (string, error) {
	if route == nil || len(route.Stops) == 0 {
		t.metrics.ObserveTransition("register", metrics.ResultRejected)
		return "", fmt.Errorf("register route: %w", domain.ErrEmptyStopSet)
	}

	id := route.ID
	if id == "" {
		id = uuid.NewString()
	}

	now := t.now()
	progress := &domain.RouteProgress{
		RouteID:   id,
		Status:    domain.RouteCreated,
		Stops:     make([]domain.StopProgress, 0, len(route.Stops)),
		UpdatedAt: now,
		Version:   1,
	}
	seen := make(map[string]struct{}, len(route.Stops))
	for _, rs := range route.Stops {
		if _, dup := seen[rs.Stop.ID]; dup {
			t.metrics.ObserveTransition("register", metrics.ResultRejected)
			return "", fmt.Errorf("register route %s: stop %q: %w", id, rs.Stop.ID, domain.ErrDuplicateStop)
		}
		seen[rs.Stop.ID] = struct{}{}
		progress.Stops = append(progress.Stops, domain.StopProgress{
			StopID:    rs.Stop.ID,
			Status:    domain.StopPending,
			UpdatedAt: now,
		})
	}

	entry := &routeEntry{progress: progress}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if _, loaded := t.routes.LoadOrStore(id, entry); loaded {
		t.metrics.ObserveTransition("register", metrics.ResultRejected)
		return "", fmt.Errorf("register route %s: %w", id, domain.ErrRouteExists)
	}

	t.metrics.ObserveTransition("register", metrics.ResultApplied)
	t.publish(Event{Type: EventRegistered, RouteID: id, Progress: progress, At: now})

	return id, nil
}

// Dispatch moves a CREATED route to DISPATCHED. Dispatching an already active
// route is a no-op.
func (t *Tracker) Dispatch(id string) (*domain.RouteProgress, error) {
	return t.mutate(id, "dispatch", EventDispatched, "", func(p *domain.RouteProgress, _ time.Time) (bool, error) {
		switch {
		case p.Status == domain.RouteCreated:
			p.Status = domain.RouteDispatched
			return true, nil
		case p.Status.Active():
			return false, nil
		default:
			return false, domain.ErrRouteNotActive
		}
	})
}

// UpdateLocation records the driver position. It is accepted only while the route
// is DISPATCHED or IN_PROGRESS, and the first update starts the route.
func (t *Tracker) UpdateLocation(id string, loc domain.Coordinates) (*domain.RouteProgress, error) {
	if err := loc.Validate(); err != nil {
		t.metrics.ObserveTransition("update_location", metrics.ResultRejected)
		return nil, fmt.Errorf("update location %s: %w", id, err)
	}

	return t.mutate(id, "update_location", EventLocationUpdated, "", func(p *domain.RouteProgress, now time.Time) (bool, error) {
		if !p.Status.Active() {
			return false, domain.ErrRouteNotActive
		}
		p.DriverLocation = &loc
		p.LocationUpdatedAt = &now
		if p.Status == domain.RouteDispatched {
			p.Status = domain.RouteInProgress
		}
		return true, nil
	})
}

// UpdateStop changes the status of one stop. Stops may be updated in any order.
//
// Repeating the terminal status a stop already has returns the current progress
// without error, even after the route has completed. The route completes once every
// stop is DELIVERED or FAILED.
func (t *Tracker) UpdateStop(id, stopID string, status domain.StopStatus, reason string) (*domain.RouteProgress, error) {
	if _, err := domain.ParseStopStatus(string(status)); err != nil {
		t.metrics.ObserveTransition("update_stop", metrics.ResultRejected)
		return nil, fmt.Errorf("update stop %s/%s: %w", id, stopID, err)
	}

	return t.mutate(id, "update_stop", EventStopUpdated, stopID, func(p *domain.RouteProgress, now time.Time) (bool, error) {
		i := slices.IndexFunc(p.Stops, func(s domain.StopProgress) bool { return s.StopID == stopID })
		if i < 0 {
			return false, fmt.Errorf("stop %q: %w", stopID, domain.ErrStopNotFound)
		}
		stop := &p.Stops[i]

		// A stop that already has an outcome keeps it; later outcome reports are no-ops.
		if stop.Status.Terminal() && status.Terminal() {
			return false, nil
		}
		if !p.Status.Active() {
			return false, domain.ErrRouteNotActive
		}
		if stop.Status == status {
			return false, nil
		}
		if !stopTransitionAllowed(stop.Status, status) {
			return false, fmt.Errorf("stop %q %s -> %s: %w", stopID, stop.Status, status, domain.ErrInvalidStopTransition)
		}

		stop.Status = status
		stop.UpdatedAt = now
		if status == domain.StopFailed {
			stop.FailureReason = strings.TrimSpace(reason)
		}

		p.Status = domain.RouteInProgress
		if allStopsTerminal(p) {
			p.Status = domain.RouteCompleted
		}
		return true, nil
	})
}

// Cancel moves any non-terminal route to CANCELLED.
func (t *Tracker) Cancel(id, reason string) (*domain.RouteProgress, error) {
	return t.mutate(id, "cancel", EventCancelled, "", func(p *domain.RouteProgress, _ time.Time) (bool, error) {
		if p.Status.Terminal() {
			return false, domain.ErrRouteNotActive
		}
		p.Status = domain.RouteCancelled
		p.CancelReason = strings.TrimSpace(reason)
		return true, nil
	})
}

func (t *Tracker) Get(id string) (*domain.RouteProgress, error) {
	entry, ok := t.routes.Load(id)
	if !ok {
		return nil, fmt.Errorf("get route %s: %w", id, domain.ErrRouteNotFound)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return nil, fmt.Errorf("get route %s: %w", id, domain.ErrRouteNotFound)
	}
	return entry.progress.Clone(), nil
}

// List returns a snapshot of every tracked route ordered by route ID.
func (t *Tracker) List() []*domain.RouteProgress {
	out := make([]*domain.RouteProgress, 0, t.routes.Size())
	t.routes.Range(func(_ string, entry *routeEntry) bool {
		entry.mu.Lock()
		if !entry.removed {
			out = append(out, entry.progress.Clone())
		}
		entry.mu.Unlock()
		return true
	})

	slices.SortFunc(out, func(a, b *domain.RouteProgress) int {
		return strings.Compare(a.RouteID, b.RouteID)
	})
	return out
}

// Remove stops tracking a route regardless of its status.
// Archived snapshots are kept until their retention expires.
func (t *Tracker) Remove(id string) error {
	return t.remove(id, "remove", EventRemoved)
}

// Purge stops tracking a route and asks subscribers to discard what they stored for it.
func (t *Tracker) Purge(id string) error {
	return t.remove(id, "purge", EventPurged)
}

func (t *Tracker) remove(id, op string, eventType EventType) error {
	entry, ok := t.routes.Load(id)
	if !ok {
		return fmt.Errorf("%s route %s: %w", op, id, domain.ErrRouteNotFound)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return fmt.Errorf("%s route %s: %w", op, id, domain.ErrRouteNotFound)
	}

	entry.removed = true
	t.routes.Delete(id)
	t.metrics.ObserveTransition(op, metrics.ResultApplied)
	t.publish(Event{Type: eventType, RouteID: id, Progress: entry.progress, At: t.now()})

	return nil
}

// Subscribe returns a channel of applied mutations and a function that closes it.
// Events for one route arrive in the order they were applied. Sends never block:
// when the buffer is full the event is dropped and counted.
func (t *Tracker) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	id := t.nextSubscriberID.Add(1)
	sub := &subscriber{ch: make(chan Event, buffer)}
	t.subscribers.Store(id, sub)

	return sub.ch, func() {
		if s, ok := t.subscribers.LoadAndDelete(id); ok {
			s.close()
		}
	}
}

// mutate applies fn to a copy of the route's progress under the route lock.
// fn reports whether anything changed; an error discards the copy.
func (t *Tracker) mutate(
	id, op string,
	eventType EventType,
	stopID string,
	fn func(p *domain.RouteProgress, now time.Time) (bool, error),
) (*domain.RouteProgress, error) {
	entry, ok := t.routes.Load(id)
	if !ok {
		t.metrics.ObserveTransition(op, metrics.ResultRejected)
		return nil, fmt.Errorf("%s %s: %w", op, id, domain.ErrRouteNotFound)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.removed {
		t.metrics.ObserveTransition(op, metrics.ResultRejected)
		return nil, fmt.Errorf("%s %s: %w", op, id, domain.ErrRouteNotFound)
	}

	now := t.now()
	work := entry.progress.Clone()
	from := work.Status

	changed, err := fn(work, now)
	if err != nil {
		t.metrics.ObserveTransition(op, metrics.ResultRejected)
		return nil, fmt.Errorf("%s %s: %w", op, id, err)
	}
	if !changed {
		t.metrics.ObserveTransition(op, metrics.ResultNoop)
		return entry.progress.Clone(), nil
	}

	work.UpdatedAt = now
	work.Version++
	entry.progress = work
	t.metrics.ObserveTransition(op, metrics.ResultApplied)

	if work.Status != from {
		t.metrics.ObserveRouteStatus(string(from), string(work.Status))
		logger.Get().Info("route status changed",
			zap.String("route_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(work.Status)),
			zap.Uint64("version", work.Version),
		)
	}

	t.publish(Event{Type: eventType, RouteID: id, StopID: stopID, Progress: work, At: now})
	if from != domain.RouteCompleted && work.Status == domain.RouteCompleted {
		t.publish(Event{Type: EventCompleted, RouteID: id, Progress: work, At: now})
	}

	return work.Clone(), nil
}

// publish fans ev out to every subscriber, each receiving its own copy of the progress.
func (t *Tracker) publish(ev Event) {
	progress := ev.Progress
	t.subscribers.Range(func(_ uint64, sub *subscriber) bool {
		ev.Progress = progress.Clone()
		if !sub.trySend(ev) {
			t.metrics.EventDropped()
		}
		return true
	})
}

func stopTransitionAllowed(from, to domain.StopStatus) bool {
	switch from {
	case domain.StopPending:
		return to == domain.StopEnRoute || to.Terminal()
	case domain.StopEnRoute:
		return to.Terminal()
	default:
		return false
	}
}

func allStopsTerminal(p *domain.RouteProgress) bool {
	for _, s := range p.Stops {
		if !s.Status.Terminal() {
			return false
		}
	}
	return true
}

type subscriber struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

func (s *subscriber) trySend(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}

	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

package services

import (
	"context"
	"errors"
	"route-optimizer-service/internal/platform/logger"
	"route-optimizer-service/internal/ports"

	"go.uber.org/zap"
)

// Archiver mirrors tracker state into a ProgressStore so progress survives restarts
// and can be read by other processes.
type Archiver struct {
	store       ports.ProgressStore
	events      <-chan Event
	unsubscribe func()
}

// NewArchiver subscribes immediately so no event applied after this call is missed.
func NewArchiver(tracker *Tracker, store ports.ProgressStore, buffer int) *Archiver {
	events, unsubscribe := tracker.Subscribe(buffer)
	return &Archiver{store: store, events: events, unsubscribe: unsubscribe}
}

// Run writes each event's snapshot until ctx is done or Close is called.
func (a *Archiver) Run(ctx context.Context) error {
	defer a.unsubscribe()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case ev, ok := <-a.events:
			if !ok {
				return nil
			}
			a.handle(ctx, ev)
		}
	}
}

func (a *Archiver) Close() { a.unsubscribe() }

func (a *Archiver) handle(ctx context.Context, ev Event) {
	var err error
	if ev.Type == EventPurged {
		err = a.store.DeleteProgress(ctx, ev.RouteID)
	} else {
		// Removed routes keep their final snapshot until the store's retention expires it.
		err = a.store.SaveProgress(ctx, ev.Progress)
	}

	if err != nil {
		logger.Get().Warn("archive progress failed",
			zap.String("route_id", ev.RouteID),
			zap.String("event", string(ev.Type)),
			zap.Error(err),
		)
	}
}

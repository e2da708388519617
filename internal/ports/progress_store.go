package ports

import (
	"context"
	"route-optimizer-service/internal/domain"
)

// Port: snapshot storage for route progress, written outside the tracker's locks.
type ProgressStore interface {
	SaveProgress(ctx context.Context, progress *domain.RouteProgress) error
	// Retrieve the last snapshot; domain.ErrRouteNotFound if none exists.
	LoadProgress(ctx context.Context, routeID string) (*domain.RouteProgress, error)
	DeleteProgress(ctx context.Context, routeID string) error
}

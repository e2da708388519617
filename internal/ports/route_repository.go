package ports

import (
	"context"
	"route-optimizer-service/internal/domain"
)

// Port: a boundary for persisting planned routes.
type RouteRepository interface {
	// Store a planned route and return its identifier.
	SaveRoute(ctx context.Context, route *domain.Route) (string, error)
	// Retrieve a previously stored route; domain.ErrRouteNotFound if unknown.
	LoadRoute(ctx context.Context, id string) (*domain.Route, error)
}

package ports

import (
	"context"
	"route-optimizer-service/internal/domain"
)

// Resolves street addresses to coordinates.
// Failures to find an address are reported as domain.ErrUnresolvableAddress.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (domain.Coordinates, error)
}

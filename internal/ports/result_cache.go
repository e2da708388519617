package ports

import (
	"context"
	"route-optimizer-service/internal/domain"
)

// Cache of optimization results keyed by request fingerprint.
type ResultCache interface {
	// Return the cached result and true, or nil and false on a miss.
	Get(ctx context.Context, fingerprint string) (*domain.OptimizationResult, bool, error)
	Put(ctx context.Context, fingerprint string, result *domain.OptimizationResult) error
}

package ports

import (
	"context"
	"route-optimizer-service/internal/domain"
)

// Boundary source of a full road cost matrix for a set of points.
type MatrixProvider interface {
	// Return costs where out[i][j] is the cost from points[i] to points[j].
	FetchMatrix(ctx context.Context, points []domain.Coordinates) ([][]domain.Cost, error)
}

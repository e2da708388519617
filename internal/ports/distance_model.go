package ports

import "route-optimizer-service/internal/domain"

// Contract for the travel cost between two points.
// Implementations must be deterministic and safe for concurrent use.
type DistanceModel interface {
	// Return travel distance and estimated duration from a to b.
	Cost(a, b domain.Coordinates) (domain.Cost, error)
}

package distance

import (
	"errors"
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/ports"
)

// Matrix is a DistanceModel backed by a precomputed cost table, typically a road matrix
// fetched at the request boundary. Pairs outside the table are delegated to the fallback.
// A Matrix is read-only after construction and safe for concurrent use.
type Matrix struct {
	index    map[string]int
	costs    [][]domain.Cost
	fallback ports.DistanceModel
}

var _ ports.DistanceModel = (*Matrix)(nil)

// NewMatrix builds a lookup where costs[i][j] is the cost from points[i] to points[j].
func NewMatrix(points []domain.Coordinates, costs [][]domain.Cost, fallback ports.DistanceModel) (*Matrix, error) {
	if len(costs) != len(points) {
		return nil, fmt.Errorf("new matrix: %d rows for %d points", len(costs), len(points))
	}

	index := make(map[string]int, len(points))
	for i, p := range points {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("new matrix: point %d: %w", i, err)
		}
		if len(costs[i]) != len(points) {
			return nil, fmt.Errorf("new matrix: row %d has %d columns, want %d", i, len(costs[i]), len(points))
		}
		// Duplicate points keep their first row.
		if _, ok := index[p.Key()]; !ok {
			index[p.Key()] = i
		}
	}

	return &Matrix{index: index, costs: costs, fallback: fallback}, nil
}

func (m *Matrix) Cost(a, b domain.Coordinates) (domain.Cost, error) {
	if err := a.Validate(); err != nil {
		return domain.Cost{}, fmt.Errorf("matrix cost: origin: %w", err)
	}
	if err := b.Validate(); err != nil {
		return domain.Cost{}, fmt.Errorf("matrix cost: destination: %w", err)
	}

	if a.Key() == b.Key() {
		return domain.Cost{}, nil
	}

	i, okA := m.index[a.Key()]
	j, okB := m.index[b.Key()]
	if okA && okB {
		return m.costs[i][j], nil
	}

	if m.fallback == nil {
		return domain.Cost{}, errors.New("matrix cost: pair not in matrix and no fallback configured")
	}
	return m.fallback.Cost(a, b)
}

package distance

import (
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/ports"
)

// DefaultSpeedKPH is the average road speed assumed when no better estimate is available.
const DefaultSpeedKPH = 40.0

// Haversine is a straight-line DistanceModel with durations derived from an average speed.
// It is pure, symmetric, and safe for concurrent use.
type Haversine struct {
	SpeedKPH float64
}

var _ ports.DistanceModel = Haversine{}

func NewHaversine(speedKPH float64) Haversine {
	if speedKPH <= 0 {
		speedKPH = DefaultSpeedKPH
	}
	return Haversine{SpeedKPH: speedKPH}
}

func (h Haversine) Cost(a, b domain.Coordinates) (domain.Cost, error) {
	if err := a.Validate(); err != nil {
		return domain.Cost{}, fmt.Errorf("haversine cost: origin: %w", err)
	}
	if err := b.Validate(); err != nil {
		return domain.Cost{}, fmt.Errorf("haversine cost: destination: %w", err)
	}

	meters := domain.GreatCircleMeters(a, b)
	return domain.Cost{
		DistanceMeters:  meters,
		DurationSeconds: h.SecondsFor(meters),
	}, nil
}

// SecondsFor converts a distance into travel time at the configured speed.
func (h Haversine) SecondsFor(meters float64) float64 {
	speed := h.SpeedKPH
	if speed <= 0 {
		speed = DefaultSpeedKPH
	}
	return meters / (speed * 1000 / 3600)
}

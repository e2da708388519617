package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/logger"
	"route-optimizer-service/internal/platform/obs"

	"go.uber.org/zap"
)

type matrixRequest struct {
	Locations [][]float64 `json:"locations"`
	Metrics   []string    `json:"metrics"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// FetchMatrix returns the full road cost matrix for points.
// The cache is consulted first; a single ORS call fills any gap and the result is written back.
func (o *ORSClient) FetchMatrix(ctx context.Context, points []domain.Coordinates) (_ [][]domain.Cost, err error) {
	defer obs.Time(ctx, "ors.FetchMatrix")(&err)

	if len(points) == 0 {
		return [][]domain.Cost{}, nil
	}

	keys := make([]string, len(points))
	for i, p := range points {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("fetch matrix: point %d: %w", i, err)
		}
		keys[i] = p.Key()
	}

	if cached, ok := o.matrixFromCache(ctx, keys); ok {
		return cached, nil
	}

	out, err := o.fetchMatrix(ctx, points)
	if err != nil {
		return nil, err
	}

	if o.distanceCache != nil {
		for i, origin := range keys {
			row := make(map[string]domain.Cost, len(keys))
			for j, dest := range keys {
				if dest != origin {
					row[dest] = out[i][j]
				}
			}
			if err := o.distanceCache.PutMany(ctx, origin, row); err != nil {
				logger.Get().Warn("distance cache write failed", zap.String("origin", origin), zap.Error(err))
				break
			}
		}
	}

	return out, nil
}

func (o *ORSClient) matrixFromCache(ctx context.Context, keys []string) ([][]domain.Cost, bool) {
	if o.distanceCache == nil {
		return nil, false
	}

	out := make([][]domain.Cost, len(keys))
	for i, origin := range keys {
		hits, err := o.distanceCache.GetMany(ctx, origin, keys)
		if err != nil {
			logger.Get().Warn("distance cache read failed", zap.String("origin", origin), zap.Error(err))
			return nil, false
		}

		out[i] = make([]domain.Cost, len(keys))
		for j, dest := range keys {
			if dest == origin {
				continue
			}
			c, ok := hits[dest]
			if !ok {
				return nil, false
			}
			out[i][j] = c
		}
	}

	return out, true
}

// fetchMatrix retrieves distance and duration between all points
// using the OpenRouteService matrix endpoint.
func (o *ORSClient) fetchMatrix(ctx context.Context, points []domain.Coordinates) ([][]domain.Cost, error) {
	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)

	locations := make([][]float64, 0, len(points))
	for _, p := range points {
		locations = append(locations, p.CoordsToList())
	}

	payload, err := json.Marshal(matrixRequest{
		Locations: locations,
		Metrics:   []string{"distance", "duration"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", err)
	}

	n := len(points)
	if len(mr.Distances) != n || len(mr.Durations) != n {
		return nil, fmt.Errorf(
			"expected %d matrix rows; got distances=%d durations=%d",
			n, len(mr.Distances), len(mr.Durations),
		)
	}

	out := make([][]domain.Cost, n)
	for i := 0; i < n; i++ {
		if len(mr.Distances[i]) != n || len(mr.Durations[i]) != n {
			return nil, fmt.Errorf("matrix row %d has wrong length", i)
		}

		out[i] = make([]domain.Cost, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			meters, seconds := mr.Distances[i][j], mr.Durations[i][j]
			// ORS reports unroutable pairs as null.
			if meters == nil || seconds == nil {
				return nil, fmt.Errorf("matrix returned no route from point %d to point %d", i, j)
			}
			out[i][j] = domain.Cost{DistanceMeters: *meters, DurationSeconds: *seconds}
		}
	}

	return out, nil
}

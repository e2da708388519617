package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"route-optimizer-service/internal/adapters/cache"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"time"
)

const progressKeyPrefix = "routeopt:progress:"

// RedisProgressStore keeps the latest RouteProgress snapshot per route as JSON.
// A zero retention keeps snapshots until deleted.
type RedisProgressStore struct {
	redis     *cache.RedisAdapter
	retention time.Duration
}

var _ ports.ProgressStore = (*RedisProgressStore)(nil)

func NewRedisProgressStore(r *cache.RedisAdapter, retention time.Duration) *RedisProgressStore {
	return &RedisProgressStore{redis: r, retention: retention}
}

func (s *RedisProgressStore) SaveProgress(ctx context.Context, progress *domain.RouteProgress) (err error) {
	defer obs.Time(ctx, "progress.SaveProgress")(&err)

	if progress == nil || progress.RouteID == "" {
		return errors.New("save progress: route id is required")
	}

	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("save progress %s: marshal: %w", progress.RouteID, err)
	}

	if err := s.redis.Set(ctx, progressKeyPrefix+progress.RouteID, data, s.retention); err != nil {
		return fmt.Errorf("save progress %s: %w", progress.RouteID, err)
	}
	return nil
}

func (s *RedisProgressStore) LoadProgress(ctx context.Context, routeID string) (_ *domain.RouteProgress, err error) {
	defer obs.Time(ctx, "progress.LoadProgress")(&err)

	data, err := s.redis.Get(ctx, progressKeyPrefix+routeID)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, fmt.Errorf("load progress %s: %w", routeID, domain.ErrRouteNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load progress %s: %w", routeID, err)
	}

	var p domain.RouteProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("load progress %s: unmarshal: %w", routeID, err)
	}
	return &p, nil
}

func (s *RedisProgressStore) DeleteProgress(ctx context.Context, routeID string) error {
	if err := s.redis.Delete(ctx, progressKeyPrefix+routeID); err != nil {
		return fmt.Errorf("delete progress %s: %w", routeID, err)
	}
	return nil
}

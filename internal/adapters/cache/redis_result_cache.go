package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"time"
)

const resultKeyPrefix = "routeopt:result:"

// RedisResultCache stores optimization results as JSON under their request fingerprint.
type RedisResultCache struct {
	redis *RedisAdapter
	ttl   time.Duration
}

var _ ports.ResultCache = (*RedisResultCache)(nil)

func NewRedisResultCache(r *RedisAdapter, ttl time.Duration) *RedisResultCache {
	return &RedisResultCache{redis: r, ttl: ttl}
}

func (c *RedisResultCache) Get(ctx context.Context, fingerprint string) (_ *domain.OptimizationResult, _ bool, err error) {
	defer obs.Time(ctx, "result.cache.Get")(&err)

	data, err := c.redis.Get(ctx, resultKeyPrefix+fingerprint)
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("result cache get: %w", err)
	}

	var res domain.OptimizationResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, fmt.Errorf("result cache get: unmarshal: %w", err)
	}
	return &res, true, nil
}

func (c *RedisResultCache) Put(ctx context.Context, fingerprint string, result *domain.OptimizationResult) (err error) {
	defer obs.Time(ctx, "result.cache.Put")(&err)

	if result == nil {
		return errors.New("result cache put: result is nil")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("result cache put: marshal: %w", err)
	}

	if err := c.redis.Set(ctx, resultKeyPrefix+fingerprint, data, c.ttl); err != nil {
		return fmt.Errorf("result cache put: %w", err)
	}
	return nil
}

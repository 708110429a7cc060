package analysis

import (
	"context"

	"github.com/turtacn/WinWin-Intelligence/internal/domain/entity"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/cache"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
)

// CachedValuator memoizes an inner Valuator behind a Cache keyed by the
// canonical input fingerprint.  Identical (profile, component set) inputs
// return the stored result; cache failures degrade to direct computation.
type CachedValuator struct {
	inner   entity.Valuator
	cache   cache.Cache
	backend string
	metrics *prometheus.EngineMetrics
}

// NewCachedValuator wraps inner with memoization.  backend names the cache
// in metrics ("memory" or "redis"); metrics may be nil.
func NewCachedValuator(inner entity.Valuator, c cache.Cache, backend string, metrics *prometheus.EngineMetrics) (*CachedValuator, error) {
	if inner == nil {
		return nil, errors.InvalidParam("cached valuator requires an inner valuator")
	}
	if c == nil {
		return nil, errors.InvalidParam("cached valuator requires a cache")
	}
	return &CachedValuator{inner: inner, cache: c, backend: backend, metrics: metrics}, nil
}

// CalculateEntityValue implements entity.Valuator.
func (v *CachedValuator) CalculateEntityValue(ctx context.Context, profile entity.Profile, components []entity.ValueComponent) (*entity.ValueResult, error) {
	// Validate before keying so structural errors are never memoized.
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	for _, c := range components {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}

	key := cache.Fingerprint(profile, components)

	var result entity.ValueResult
	if err := v.cache.Get(ctx, key, &result); err == nil {
		v.metrics.RecordCacheAccess(v.backend, true)
		return &result, nil
	}
	v.metrics.RecordCacheAccess(v.backend, false)

	err := v.cache.GetOrSet(ctx, key, &result, func(ctx context.Context) (interface{}, error) {
		res, err := v.inner.CalculateEntityValue(ctx, profile, components)
		if err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/WinWin-Intelligence/internal/domain/entity"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

type cachedResult struct {
	Total float64 `json:"total"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(logging.NewNopLogger())

	var miss cachedResult
	err := c.Get(ctx, "k1", &miss)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k1", cachedResult{Total: 95}))

	var hit cachedResult
	require.NoError(t, c.Get(ctx, "k1", &hit))
	assert.Equal(t, 95.0, hit.Total)

	require.NoError(t, c.Delete(ctx, "k1", "never-existed"))
	assert.ErrorIs(t, c.Get(ctx, "k1", &hit), ErrCacheMiss)
}

func TestMemoryCacheGetOrSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(logging.NewNopLogger())

	var loads int32
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		return cachedResult{Total: 155}, nil
	}

	var first cachedResult
	require.NoError(t, c.GetOrSet(ctx, "deal", &first, loader))
	assert.Equal(t, 155.0, first.Total)

	var second cachedResult
	require.NoError(t, c.GetOrSet(ctx, "deal", &second, loader))
	assert.Equal(t, first, second, "cached result identical to computed result")
	assert.EqualValues(t, 1, atomic.LoadInt32(&loads))
}

func TestMemoryCacheConcurrentLoadersShare(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(logging.NewNopLogger())

	var loads int32
	gate := make(chan struct{})
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		<-gate
		return cachedResult{Total: 1}, nil
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([]cachedResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.GetOrSet(ctx, "shared", &results[i], loader))
		}(i)
	}
	close(gate)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&loads), "singleflight collapses concurrent loads")
	for _, r := range results {
		assert.Equal(t, 1.0, r.Total)
	}
}

func TestFingerprintStability(t *testing.T) {
	profile := entity.Profile{
		EntityID:       "ustda",
		Type:           common.EntityGovernment,
		TimePreference: 0.05,
		RiskPreference: 0.3,
	}
	a := entity.NewImmediateComponent(common.DimensionEconomic, 95, 1)
	b := entity.NewImmediateComponent(common.DimensionSocial, 20, 0.8)

	k1 := Fingerprint(profile, []entity.ValueComponent{a, b})
	k2 := Fingerprint(profile, []entity.ValueComponent{b, a})
	assert.Equal(t, k1, k2, "component order must not change the key")

	changed := profile
	changed.RiskPreference = 0.4
	assert.NotEqual(t, k1, Fingerprint(changed, []entity.ValueComponent{a, b}),
		"preference changes produce distinct keys")

	assert.NotEqual(t, k1, Fingerprint(profile, []entity.ValueComponent{a}),
		"component set changes produce distinct keys")
}

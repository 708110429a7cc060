package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/WinWin-Intelligence/internal/domain/entity"
	"github.com/turtacn/WinWin-Intelligence/internal/domain/winwin"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/cache"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

// countingValuator tracks how often the expensive path actually runs.
type countingValuator struct {
	inner entity.Valuator
	calls int
}

func (c *countingValuator) CalculateEntityValue(ctx context.Context, p entity.Profile, comps []entity.ValueComponent) (*entity.ValueResult, error) {
	c.calls++
	return c.inner.CalculateEntityValue(ctx, p, comps)
}

func newTestService(t *testing.T, valuator entity.Valuator) Service {
	t.Helper()
	analyzer, err := winwin.NewAnalyzer(winwin.AnalyzerConfig{
		Valuator: valuator,
		Logger:   logging.NewNopLogger(),
	})
	require.NoError(t, err)
	rebalancer, err := winwin.NewRebalancer(winwin.RebalancerConfig{
		Analyzer: analyzer,
		Logger:   logging.NewNopLogger(),
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceConfig{
		Analyzer:   analyzer,
		Rebalancer: rebalancer,
		Logger:     logging.NewNopLogger(),
	})
	require.NoError(t, err)
	return svc
}

func govInput(id common.ID, amount float64) EntityInput {
	return EntityInput{
		Profile: entity.Profile{EntityID: id, Name: string(id), Type: common.EntityGovernment},
		Components: []entity.ValueComponent{
			entity.NewImmediateComponent(common.DimensionEconomic, amount, 1),
		},
	}
}

func TestServiceAnalyze(t *testing.T) {
	svc := newTestService(t, entity.NewValuator(entity.ValuatorConfig{}))

	resp, err := svc.Analyze(context.Background(), AnalyzeRequest{
		Entities: []EntityInput{
			govInput("ustda", 95),
			govInput("usitc", 80),
			govInput("dev_company", 155),
			govInput("local_community", 55),
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.Verdict.IsWinWin)
	assert.InDelta(t, 0.2045, resp.Verdict.ValueInequalityGini, 0.0005)
}

func TestServiceRejectsDuplicateEntities(t *testing.T) {
	svc := newTestService(t, entity.NewValuator(entity.ValuatorConfig{}))

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{
		Entities: []EntityInput{govInput("dup", 1), govInput("dup", 2)},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestServiceRebalance(t *testing.T) {
	svc := newTestService(t, entity.NewValuator(entity.ValuatorConfig{}))

	resp, err := svc.Rebalance(context.Background(), AnalyzeRequest{
		Entities: []EntityInput{govInput("rich", 300), govInput("poor", -20)},
	})
	require.NoError(t, err)
	assert.True(t, resp.Plan.ResultingVerdict.IsWinWin)
	assert.NotEmpty(t, resp.Plan.Transfers)
}

func TestCachedValuatorMemoizes(t *testing.T) {
	counting := &countingValuator{inner: entity.NewValuator(entity.ValuatorConfig{})}
	cached, err := NewCachedValuator(counting, cache.NewMemoryCache(logging.NewNopLogger()), "memory", nil)
	require.NoError(t, err)

	profile := entity.Profile{EntityID: "ustda", Type: common.EntityGovernment}
	comps := []entity.ValueComponent{entity.NewImmediateComponent(common.DimensionEconomic, 95, 1)}

	first, err := cached.CalculateEntityValue(context.Background(), profile, comps)
	require.NoError(t, err)
	second, err := cached.CalculateEntityValue(context.Background(), profile, comps)
	require.NoError(t, err)

	assert.Equal(t, 1, counting.calls, "second call must hit the cache")
	assert.Equal(t, first.TotalValue, second.TotalValue)
	assert.Equal(t, first.ByDimension, second.ByDimension)
}

func TestCachedValuatorDistinctInputsRecompute(t *testing.T) {
	counting := &countingValuator{inner: entity.NewValuator(entity.ValuatorConfig{})}
	cached, err := NewCachedValuator(counting, cache.NewMemoryCache(logging.NewNopLogger()), "memory", nil)
	require.NoError(t, err)

	profile := entity.Profile{EntityID: "ustda", Type: common.EntityGovernment}
	a := []entity.ValueComponent{entity.NewImmediateComponent(common.DimensionEconomic, 95, 1)}
	b := []entity.ValueComponent{entity.NewImmediateComponent(common.DimensionEconomic, 96, 1)}

	_, err = cached.CalculateEntityValue(context.Background(), profile, a)
	require.NoError(t, err)
	_, err = cached.CalculateEntityValue(context.Background(), profile, b)
	require.NoError(t, err)
	assert.Equal(t, 2, counting.calls)
}

func TestCachedValuatorNeverMemoizesErrors(t *testing.T) {
	counting := &countingValuator{inner: entity.NewValuator(entity.ValuatorConfig{})}
	cached, err := NewCachedValuator(counting, cache.NewMemoryCache(logging.NewNopLogger()), "memory", nil)
	require.NoError(t, err)

	bad := []entity.ValueComponent{{
		ComponentID: "bad",
		Dimension:   common.DimensionEconomic,
		Probability: 2,
	}}
	profile := entity.Profile{EntityID: "x", Type: common.EntityNGO}

	for i := 0; i < 2; i++ {
		_, err := cached.CalculateEntityValue(context.Background(), profile, bad)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeProbabilityRange))
	}
	assert.Equal(t, 0, counting.calls, "validation rejects before the inner valuator runs")
}

func TestServiceConfigValidation(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	assert.Error(t, err)

	_, err = NewCachedValuator(nil, cache.NewMemoryCache(nil), "memory", nil)
	assert.Error(t, err)
}

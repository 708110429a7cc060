package roadmap

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/WinWin-Intelligence/internal/domain/entity"
	"github.com/turtacn/WinWin-Intelligence/internal/domain/hypergraph"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

func newTestOptimizer(t *testing.T, tunables Tunables) Optimizer {
	t.Helper()
	o, err := NewOptimizer(OptimizerConfig{
		Logger:   logging.NewNopLogger(),
		Tunables: tunables,
	})
	require.NoError(t, err)
	return o
}

func newTestGraph(t *testing.T, entityIDs ...common.ID) *hypergraph.DealHypergraph {
	t.Helper()
	g, err := hypergraph.NewHypergraph(hypergraph.HypergraphConfig{
		Valuator: entity.NewValuator(entity.ValuatorConfig{}),
		Logger:   logging.NewNopLogger(),
	})
	require.NoError(t, err)
	for _, id := range entityIDs {
		require.NoError(t, g.AddEntity(entity.Profile{
			EntityID: id,
			Name:     string(id),
			Type:     common.EntityCorporate,
		}))
	}
	return g
}

func addScalarDeal(t *testing.T, g *hypergraph.DealHypergraph, id common.ID, deps []common.ID, stakes map[common.ID]float64) {
	t.Helper()
	participants := make([]common.ID, 0, len(stakes))
	st := make(map[common.ID]hypergraph.Stake, len(stakes))
	for e, v := range stakes {
		participants = append(participants, e)
		st[e] = hypergraph.Stake{Scalar: v}
	}
	require.NoError(t, g.AddDeal(context.Background(), hypergraph.DealHyperedge{
		DealID:       id,
		Participants: participants,
		Stakes:       st,
		Dependencies: deps,
		Risk:         hypergraph.RiskProfile{SuccessProbability: 1},
	}))
}

func indexOf(order []common.ID, id common.ID) int {
	for i, d := range order {
		if d == id {
			return i
		}
	}
	return -1
}

func TestOptimizeEmptyGraph(t *testing.T) {
	o := newTestOptimizer(t, Tunables{})
	g := newTestGraph(t)

	roadmap, err := o.Optimize(context.Background(), g, OptimizeOptions{})
	require.NoError(t, err)
	assert.Zero(t, roadmap.Len())
	assert.True(t, roadmap.Complete)
	assert.Empty(t, roadmap.ExcludedEntities)
}

func TestOptimizeSingleDeal(t *testing.T) {
	o := newTestOptimizer(t, Tunables{})
	g := newTestGraph(t, "a", "b")
	addScalarDeal(t, g, "only", nil, map[common.ID]float64{"a": 10, "b": 20})

	roadmap, err := o.Optimize(context.Background(), g, OptimizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []common.ID{"only"}, roadmap.Order)
	assert.True(t, roadmap.Complete)
	assert.InDelta(t, 30.0, roadmap.TotalValue, 1e-9)
}

// Dependency order must hold whether the graph is solved exhaustively or
// greedily, with and without lookahead.
func TestDependencyOrderAcrossConfigurations(t *testing.T) {
	configs := []Tunables{
		{},                           // defaults (5 deals → exhaustive)
		{ExhaustiveThreshold: 1},     // force greedy
		{ExhaustiveThreshold: 1, LookaheadDepth: 1},
		{ExhaustiveThreshold: 1, LookaheadDepth: 3},
	}
	for i, tunables := range configs {
		t.Run(fmt.Sprintf("config_%d", i), func(t *testing.T) {
			o := newTestOptimizer(t, tunables)
			g := newTestGraph(t, "x", "y", "z")
			// B depends on A; C, D, E are free.
			addScalarDeal(t, g, "dealA", nil, map[common.ID]float64{"x": 5, "y": 5})
			addScalarDeal(t, g, "dealB", []common.ID{"dealA"}, map[common.ID]float64{"y": 100, "z": 100})
			addScalarDeal(t, g, "dealC", nil, map[common.ID]float64{"x": 10, "z": 10})
			addScalarDeal(t, g, "dealD", nil, map[common.ID]float64{"y": 1, "z": 1})
			addScalarDeal(t, g, "dealE", nil, map[common.ID]float64{"x": 3, "y": 3})

			roadmap, err := o.Optimize(context.Background(), g, OptimizeOptions{})
			require.NoError(t, err)
			require.Equal(t, 5, roadmap.Len(), "all deals placeable")

			ia, ib := indexOf(roadmap.Order, "dealA"), indexOf(roadmap.Order, "dealB")
			require.NotEqual(t, -1, ia)
			require.NotEqual(t, -1, ib)
			assert.Less(t, ia, ib, "dealB must come after its dependency dealA")
		})
	}
}

func TestOptimizeDeterministic(t *testing.T) {
	for _, tunables := range []Tunables{{}, {ExhaustiveThreshold: 1}} {
		o := newTestOptimizer(t, tunables)

		build := func() *hypergraph.DealHypergraph {
			g := newTestGraph(t, "a", "b", "c")
			addScalarDeal(t, g, "d1", nil, map[common.ID]float64{"a": 10, "b": 10})
			addScalarDeal(t, g, "d2", nil, map[common.ID]float64{"b": 10, "c": 10})
			addScalarDeal(t, g, "d3", []common.ID{"d1"}, map[common.ID]float64{"a": 10, "c": 10})
			return g
		}

		first, err := o.Optimize(context.Background(), build(), OptimizeOptions{})
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			again, err := o.Optimize(context.Background(), build(), OptimizeOptions{})
			require.NoError(t, err)
			assert.Equal(t, first.Order, again.Order)
		}
	}
}

func TestProtectedEntitySkipsHarmfulDeals(t *testing.T) {
	for _, tunables := range []Tunables{{}, {ExhaustiveThreshold: 1}} {
		o := newTestOptimizer(t, tunables)
		g := newTestGraph(t, "victim", "beneficiary")
		// The harmful deal would push the protected entity to −50 with no
		// prior cushion.
		addScalarDeal(t, g, "harmful", nil, map[common.ID]float64{"victim": -50, "beneficiary": 200})
		addScalarDeal(t, g, "benign", nil, map[common.ID]float64{"victim": 10, "beneficiary": 10})

		roadmap, err := o.Optimize(context.Background(), g, OptimizeOptions{
			ProtectedEntities: []common.ID{"victim"}})
		require.NoError(t, err)

		assert.Equal(t, -1, indexOf(roadmap.Order, "harmful"), "harmful deal must be skipped")
		assert.NotEqual(t, -1, indexOf(roadmap.Order, "benign"))
		assert.Contains(t, roadmap.ExcludedEntities, common.ID("victim"))
	}
}

func TestProtectedEntityCushionAllowsDeal(t *testing.T) {
	o := newTestOptimizer(t, Tunables{})
	g := newTestGraph(t, "victim", "beneficiary")
	// A prior gain of 60 makes the later −50 survivable.
	addScalarDeal(t, g, "cushion", nil, map[common.ID]float64{"victim": 60, "beneficiary": 5})
	addScalarDeal(t, g, "drawdown", []common.ID{"cushion"}, map[common.ID]float64{"victim": -50, "beneficiary": 200})

	roadmap, err := o.Optimize(context.Background(), g, OptimizeOptions{
		ProtectedEntities: []common.ID{"victim"}})
	require.NoError(t, err)

	assert.Equal(t, []common.ID{"cushion", "drawdown"}, roadmap.Order)
	assert.Empty(t, roadmap.ExcludedEntities)
	assert.InDelta(t, 10.0, roadmap.FinalByEntity["victim"], 1e-9)
}

func TestUnknownProtectedEntityRejected(t *testing.T) {
	o := newTestOptimizer(t, Tunables{})
	g := newTestGraph(t, "a", "b")
	addScalarDeal(t, g, "d1", nil, map[common.ID]float64{"a": 1, "b": 1})

	_, err := o.Optimize(context.Background(), g, OptimizeOptions{
		ProtectedEntities: []common.ID{"stranger"}})
	assert.Error(t, err)
}

func TestBudgetExpiryReturnsPartialRoadmap(t *testing.T) {
	o := newTestOptimizer(t, Tunables{ExhaustiveThreshold: 1, MaxBranches: 2})
	g := newTestGraph(t, "a", "b")
	for i := 0; i < 10; i++ {
		addScalarDeal(t, g, common.ID(fmt.Sprintf("deal%02d", i)), nil, map[common.ID]float64{"a": 1, "b": 1})
	}

	roadmap, err := o.Optimize(context.Background(), g, OptimizeOptions{})
	require.NoError(t, err, "budget expiry is a result state, not an error")
	assert.False(t, roadmap.Complete)
	assert.Less(t, roadmap.Len(), 10)
}

func TestGreedyPrefersHighValue(t *testing.T) {
	o := newTestOptimizer(t, Tunables{ExhaustiveThreshold: 1, LookaheadDepth: 1})
	g := newTestGraph(t, "a", "b")
	addScalarDeal(t, g, "small", nil, map[common.ID]float64{"a": 1, "b": 1})
	addScalarDeal(t, g, "big", nil, map[common.ID]float64{"a": 100, "b": 100})

	roadmap, err := o.Optimize(context.Background(), g, OptimizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, common.ID("big"), roadmap.Order[0])
}

func TestLargerGraphGreedyPlacesEverything(t *testing.T) {
	o := newTestOptimizer(t, Tunables{})
	g := newTestGraph(t, "a", "b", "c", "d")

	// 12 deals force the greedy path; a dependency chain threads through.
	prev := common.ID("")
	for i := 0; i < 12; i++ {
		id := common.ID(fmt.Sprintf("deal%02d", i))
		var deps []common.ID
		if i%3 == 0 && prev != "" {
			deps = []common.ID{prev}
		}
		stakes := map[common.ID]float64{
			"a": float64(i + 1),
			"b": float64(12 - i),
		}
		if i%2 == 0 {
			stakes["c"] = 5
		} else {
			stakes["d"] = 5
		}
		addScalarDeal(t, g, id, deps, stakes)
		prev = id
	}

	roadmap, err := o.Optimize(context.Background(), g, OptimizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 12, roadmap.Len())
	assert.True(t, roadmap.Complete)

	// Dependency prefix property holds for the whole order.
	_, err = g.BuildRoadmap(roadmap.Order)
	assert.NoError(t, err)
}

func TestBranchPoolSequentialAndParallelAgree(t *testing.T) {
	candidates := make([]common.ID, 40)
	for i := range candidates {
		candidates[i] = common.ID(fmt.Sprintf("c%02d", i))
	}
	score := func(id common.ID) float64 { return float64(len(id)) + float64(id[1]) }

	sequential := newBranchPool(4, 100).scoreAll(candidates, score)
	parallel := newBranchPool(4, 2).scoreAll(candidates, score)
	assert.Equal(t, sequential, parallel)
}

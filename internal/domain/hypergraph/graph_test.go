package hypergraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/WinWin-Intelligence/internal/domain/entity"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

func newTestGraph(t *testing.T) *DealHypergraph {
	t.Helper()
	g, err := NewHypergraph(HypergraphConfig{
		Valuator: entity.NewValuator(entity.ValuatorConfig{}),
		Logger:   logging.NewNopLogger(),
	})
	require.NoError(t, err)
	return g
}

func addEntities(t *testing.T, g *DealHypergraph, ids ...common.ID) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, g.AddEntity(entity.Profile{
			EntityID: id,
			Name:     string(id),
			Type:     common.EntityCorporate,
		}))
	}
}

func scalarDeal(id common.ID, deps []common.ID, stakes map[common.ID]float64) DealHyperedge {
	participants := make([]common.ID, 0, len(stakes))
	st := make(map[common.ID]Stake, len(stakes))
	for e, v := range stakes {
		participants = append(participants, e)
		st[e] = Stake{Scalar: v}
	}
	return DealHyperedge{
		DealID:       id,
		Participants: participants,
		Stakes:       st,
		Dependencies: deps,
		Risk:         RiskProfile{SuccessProbability: 1},
	}
}

func TestAddDealValidation(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	addEntities(t, g, "a", "b")

	err := g.AddDeal(ctx, scalarDeal("solo", nil, map[common.ID]float64{"a": 10}))
	assert.True(t, errors.IsCode(err, errors.CodeMalformedHyperedge), "single participant")

	err = g.AddDeal(ctx, scalarDeal("ghost", nil, map[common.ID]float64{"a": 10, "zz": 5}))
	assert.True(t, errors.IsCode(err, errors.CodeUnknownEntity))

	bad := scalarDeal("risky", nil, map[common.ID]float64{"a": 10, "b": 5})
	bad.Risk.SuccessProbability = 1.5
	err = g.AddDeal(ctx, bad)
	assert.True(t, errors.IsCode(err, errors.CodeProbabilityRange))

	require.NoError(t, g.AddDeal(ctx, scalarDeal("d1", nil, map[common.ID]float64{"a": 10, "b": 5})))
	err = g.AddDeal(ctx, scalarDeal("d1", nil, map[common.ID]float64{"a": 1, "b": 1}))
	assert.True(t, errors.IsCode(err, errors.CodeMalformedHyperedge), "duplicate deal ID")
}

func TestComponentStakesResolveThroughValuation(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	// dev_company discounts at 10% per period.
	require.NoError(t, g.AddEntity(entity.Profile{
		EntityID:       "dev_company",
		Type:           common.EntityCorporate,
		TimePreference: 0.1,
	}))
	addEntities(t, g, "local_community")

	deal := DealHyperedge{
		DealID:       "plant",
		Participants: []common.ID{"dev_company", "local_community"},
		Stakes: map[common.ID]Stake{
			"dev_company": {Components: []entity.ValueComponent{{
				ComponentID: "payout",
				Dimension:   common.DimensionEconomic,
				Timeline:    []entity.TimelineEntry{{Period: 1, Amount: 110}},
				Probability: 1,
			}}},
			"local_community": {Scalar: 40},
		},
		Risk: RiskProfile{SuccessProbability: 1},
	}
	require.NoError(t, g.AddDeal(ctx, deal))

	placed := g.Deal("plant")
	// 110 / 1.1 = 100
	assert.InDelta(t, 100.0, placed.ResolvedValue("dev_company"), 1e-9)
	assert.InDelta(t, 40.0, placed.ResolvedValue("local_community"), 1e-9)
	assert.InDelta(t, 140.0, placed.AggregateValue(), 1e-9)
}

func TestDealsForEntityRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	addEntities(t, g, "a", "b", "c")

	require.NoError(t, g.AddDeal(ctx, scalarDeal("d1", nil, map[common.ID]float64{"a": 1, "b": 1})))
	require.NoError(t, g.AddDeal(ctx, scalarDeal("d2", nil, map[common.ID]float64{"b": 1, "c": 1})))
	require.NoError(t, g.AddDeal(ctx, scalarDeal("d3", nil, map[common.ID]float64{"a": 1, "c": 1})))

	// Every deal listed for an entity must list that entity back.
	for _, id := range g.EntityIDs() {
		for _, deal := range g.DealsForEntity(id) {
			assert.Contains(t, deal.Participants, id)
		}
	}

	dealIDs := func(deals []*DealHyperedge) []common.ID {
		out := make([]common.ID, len(deals))
		for i, d := range deals {
			out[i] = d.DealID
		}
		return out
	}
	assert.Equal(t, []common.ID{"d1", "d3"}, dealIDs(g.DealsForEntity("a")))
	assert.Equal(t, []common.ID{"d1", "d2"}, dealIDs(g.DealsForEntity("b")))
	assert.Empty(t, g.DealsForEntity("unknown"))
}

func TestValueEdgeDecomposition(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	addEntities(t, g, "a", "b", "c")
	require.NoError(t, g.AddDeal(ctx, scalarDeal("d1", nil, map[common.ID]float64{"a": 60, "b": 30, "c": 10})))

	edges, err := g.ValueEdges("d1")
	require.NoError(t, err)
	require.Len(t, edges, 3)

	// Per-deal edge weights sum back to the aggregate value.
	var sum float64
	for _, e := range edges {
		sum += e.Weight
	}
	assert.InDelta(t, 100.0, sum, 1e-9)

	// (60+30)/(2·2) = 22.5 for the a-b pair.
	assert.Equal(t, common.ID("a"), edges[0].A)
	assert.Equal(t, common.ID("b"), edges[0].B)
	assert.InDelta(t, 22.5, edges[0].Weight, 1e-9)

	_, err = g.ValueEdges("nope")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestCyclicDependencyFailsFast(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	addEntities(t, g, "a", "b")

	require.NoError(t, g.AddDeal(ctx, scalarDeal("d1", []common.ID{"d2"}, map[common.ID]float64{"a": 1, "b": 1})))
	require.NoError(t, g.AddDeal(ctx, scalarDeal("d2", []common.ID{"d1"}, map[common.ID]float64{"a": 1, "b": 1})))

	err := g.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCyclicDependency))
	assert.True(t, errors.IsStructural(err))

	_, err = g.TopologicalOrder()
	assert.True(t, errors.IsCode(err, errors.CodeCyclicDependency))
}

func TestMissingDependencyTarget(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	addEntities(t, g, "a", "b")
	require.NoError(t, g.AddDeal(ctx, scalarDeal("d1", []common.ID{"never"}, map[common.ID]float64{"a": 1, "b": 1})))

	err := g.Validate()
	assert.True(t, errors.IsCode(err, errors.CodeMalformedHyperedge))
}

func TestTopologicalOrderDeterministic(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	addEntities(t, g, "a", "b")

	// d3 depends on d1; d2 and d1 are both ready at the start, d1 carries
	// more value so it goes first.
	require.NoError(t, g.AddDeal(ctx, scalarDeal("d2", nil, map[common.ID]float64{"a": 5, "b": 5})))
	require.NoError(t, g.AddDeal(ctx, scalarDeal("d1", nil, map[common.ID]float64{"a": 50, "b": 50})))
	require.NoError(t, g.AddDeal(ctx, scalarDeal("d3", []common.ID{"d1"}, map[common.ID]float64{"a": 500, "b": 500})))

	first, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []common.ID{"d1", "d3", "d2"}, first)

	for i := 0; i < 5; i++ {
		again, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTopologicalOrderTieBreaksByID(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	addEntities(t, g, "a", "b")

	require.NoError(t, g.AddDeal(ctx, scalarDeal("zeta", nil, map[common.ID]float64{"a": 10, "b": 10})))
	require.NoError(t, g.AddDeal(ctx, scalarDeal("alpha", nil, map[common.ID]float64{"a": 10, "b": 10})))

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []common.ID{"alpha", "zeta"}, order)
}

func TestBuildRoadmapTrace(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	addEntities(t, g, "a", "b", "c")

	require.NoError(t, g.AddDeal(ctx, scalarDeal("d1", nil, map[common.ID]float64{"a": 10, "b": 20})))
	require.NoError(t, g.AddDeal(ctx, scalarDeal("d2", []common.ID{"d1"}, map[common.ID]float64{"b": 5, "c": 15})))

	roadmap, err := g.BuildRoadmap([]common.ID{"d1", "d2"})
	require.NoError(t, err)

	assert.Equal(t, 2, roadmap.Len())
	assert.InDelta(t, 50.0, roadmap.TotalValue, 1e-9)
	assert.InDelta(t, 10.0, roadmap.FinalByEntity["a"], 1e-9)
	assert.InDelta(t, 25.0, roadmap.FinalByEntity["b"], 1e-9)
	assert.InDelta(t, 15.0, roadmap.FinalByEntity["c"], 1e-9)

	require.Len(t, roadmap.Steps, 2)
	assert.InDelta(t, 20.0, roadmap.Steps[0].CumulativeByEntity["b"], 1e-9)
	assert.InDelta(t, 25.0, roadmap.Steps[1].CumulativeByEntity["b"], 1e-9)
}

func TestBuildRoadmapRejectsBadPrefix(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t)
	addEntities(t, g, "a", "b")

	require.NoError(t, g.AddDeal(ctx, scalarDeal("d1", nil, map[common.ID]float64{"a": 1, "b": 1})))
	require.NoError(t, g.AddDeal(ctx, scalarDeal("d2", []common.ID{"d1"}, map[common.ID]float64{"a": 1, "b": 1})))

	_, err := g.BuildRoadmap([]common.ID{"d2", "d1"})
	assert.True(t, errors.IsCode(err, errors.CodeMalformedHyperedge), "dependency placed after dependent")

	_, err = g.BuildRoadmap([]common.ID{"d1", "d1"})
	assert.True(t, errors.IsCode(err, errors.CodeMalformedHyperedge), "duplicate placement")

	_, err = g.BuildRoadmap([]common.ID{"missing"})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestEmptyRoadmap(t *testing.T) {
	g := newTestGraph(t)
	roadmap, err := g.BuildRoadmap(nil)
	require.NoError(t, err)
	assert.Zero(t, roadmap.Len())
	assert.Zero(t, roadmap.TotalValue)
	assert.True(t, roadmap.Complete)
}

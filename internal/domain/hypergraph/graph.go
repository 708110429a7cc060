// Package hypergraph models deal populations as a hypergraph: entities are
// nodes, deals are hyperedges joining two or more participants, and directed
// dependencies between deals constrain execution order.  One DealHypergraph
// instance carries the state of one optimization run.
package hypergraph

import (
	"context"
	"fmt"
	"sort"

	"github.com/turtacn/WinWin-Intelligence/internal/domain/entity"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Node, stake and hyperedge types
// ─────────────────────────────────────────────────────────────────────────────

// EntityNode wraps a stakeholder profile together with the cumulative value
// state local to one optimization run.
type EntityNode struct {
	Profile entity.Profile `json:"profile"`

	// CumulativeValue accrues as deals are placed on a roadmap.  Reset by
	// the optimizer between runs.
	CumulativeValue float64 `json:"cumulative_value"`
}

// Stake is one participant's position in a deal: either a precomputed scalar
// or a component set resolved through the ordinary valuation path at graph
// build time.  Components take precedence when present.
type Stake struct {
	Scalar     float64                 `json:"scalar"`
	Components []entity.ValueComponent `json:"components,omitempty"`
}

// RiskProfile carries the stochastic parameters used by Monte Carlo
// assessment of a roadmap.
type RiskProfile struct {
	// SuccessProbability in [0,1]; 1 when unset deals never fail.
	SuccessProbability float64 `json:"success_probability"`

	// ValueVariance is the relative spread applied to realized value
	// (0.1 = ±10%).
	ValueVariance float64 `json:"value_variance"`
}

// DealHyperedge joins two or more participating entities with their stakes.
type DealHyperedge struct {
	DealID common.ID `json:"deal_id"`

	// Participants lists the entities the deal touches.  At least two.
	Participants []common.ID `json:"participants"`

	// Stakes maps each participant to its position.  Participants without
	// an entry hold a zero stake.
	Stakes map[common.ID]Stake `json:"stakes"`

	// Dependencies lists deals that must complete before this one.
	Dependencies []common.ID `json:"dependencies"`

	Risk RiskProfile `json:"risk"`

	// resolved holds per-participant scalar values fixed at AddDeal time.
	resolved map[common.ID]float64
}

// ResolvedValue returns the participant's stake as resolved at build time.
func (d *DealHyperedge) ResolvedValue(entityID common.ID) float64 {
	return d.resolved[entityID]
}

// AggregateValue is the sum of all resolved participant stakes.
func (d *DealHyperedge) AggregateValue() float64 {
	var sum float64
	for _, v := range d.resolved {
		sum += v
	}
	return sum
}

// ValueEdge is a pairwise projection of a hyperedge used by traversal
// heuristics.  A deal with n participants decomposes into n(n−1)/2 edges,
// each weighted (vₐ + v_b) / (2(n−1)) so edge weights per deal sum back to
// the deal's aggregate value.
type ValueEdge struct {
	DealID common.ID `json:"deal_id"`
	A      common.ID `json:"a"`
	B      common.ID `json:"b"`
	Weight float64   `json:"weight"`
}

// ─────────────────────────────────────────────────────────────────────────────
// DealHypergraph
// ─────────────────────────────────────────────────────────────────────────────

// DealHypergraph owns the nodes and hyperedges of one run.  Not safe for
// concurrent mutation; optimizers treat a validated graph as read-only.
type DealHypergraph struct {
	nodes map[common.ID]*EntityNode
	deals map[common.ID]*DealHyperedge

	// byEntity indexes deal IDs touching each entity, in insertion order.
	byEntity map[common.ID][]common.ID

	// dealOrder preserves insertion order for deterministic iteration.
	dealOrder []common.ID

	valuator entity.Valuator
	logger   logging.Logger
}

// HypergraphConfig carries DealHypergraph dependencies.
type HypergraphConfig struct {
	// Valuator resolves component-based stakes.  Required.
	Valuator entity.Valuator
	Logger   logging.Logger
}

// NewHypergraph constructs an empty graph.
func NewHypergraph(cfg HypergraphConfig) (*DealHypergraph, error) {
	if cfg.Valuator == nil {
		return nil, errors.InvalidParam("hypergraph requires a valuator")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	return &DealHypergraph{
		nodes:    make(map[common.ID]*EntityNode),
		deals:    make(map[common.ID]*DealHyperedge),
		byEntity: make(map[common.ID][]common.ID),
		valuator: cfg.Valuator,
		logger:   cfg.Logger.Named("hypergraph"),
	}, nil
}

// AddEntity registers a stakeholder node.  Re-adding an existing ID is a
// structural error.
func (g *DealHypergraph) AddEntity(profile entity.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if _, exists := g.nodes[profile.EntityID]; exists {
		return errors.Newf(errors.CodeInvalidParam, "entity %s already registered", profile.EntityID)
	}
	g.nodes[profile.EntityID] = &EntityNode{Profile: profile}
	return nil
}

// AddDeal validates and registers a hyperedge, resolving every participant
// stake to a scalar.  Participants must already be registered; dependency
// targets are checked later by Validate so deals may arrive in any order.
func (g *DealHypergraph) AddDeal(ctx context.Context, deal DealHyperedge) error {
	if deal.DealID.IsEmpty() {
		return errors.MalformedHyperedge("deal requires an ID")
	}
	if _, exists := g.deals[deal.DealID]; exists {
		return errors.MalformedHyperedge(fmt.Sprintf("deal %s already registered", deal.DealID))
	}
	if len(deal.Participants) < 2 {
		return errors.MalformedHyperedge(
			fmt.Sprintf("deal %s has %d participants, need at least 2", deal.DealID, len(deal.Participants)))
	}
	seen := make(map[common.ID]bool, len(deal.Participants))
	for _, p := range deal.Participants {
		if _, ok := g.nodes[p]; !ok {
			return errors.UnknownEntity(fmt.Sprintf("deal %s references unregistered entity %s", deal.DealID, p))
		}
		if seen[p] {
			return errors.MalformedHyperedge(fmt.Sprintf("deal %s lists entity %s twice", deal.DealID, p))
		}
		seen[p] = true
	}
	for id := range deal.Stakes {
		if !seen[id] {
			return errors.MalformedHyperedge(
				fmt.Sprintf("deal %s holds a stake for non-participant %s", deal.DealID, id))
		}
	}
	if p := deal.Risk.SuccessProbability; p < 0 || p > 1 {
		return errors.ProbabilityOutOfRange(
			fmt.Sprintf("deal %s success probability %v outside [0,1]", deal.DealID, p))
	}

	deal.resolved = make(map[common.ID]float64, len(deal.Participants))
	for _, p := range deal.Participants {
		v, err := g.resolveStake(ctx, p, deal.Stakes[p])
		if err != nil {
			return errors.Wrap(err, errors.CodeMalformedHyperedge,
				fmt.Sprintf("resolving stake of %s in deal %s", p, deal.DealID))
		}
		deal.resolved[p] = v
	}

	g.deals[deal.DealID] = &deal
	g.dealOrder = append(g.dealOrder, deal.DealID)
	for _, p := range deal.Participants {
		g.byEntity[p] = append(g.byEntity[p], deal.DealID)
	}
	return nil
}

// resolveStake turns a Stake into a scalar, valuing component sets with the
// participant's own preferences.
func (g *DealHypergraph) resolveStake(ctx context.Context, entityID common.ID, stake Stake) (float64, error) {
	if len(stake.Components) == 0 {
		return stake.Scalar, nil
	}
	res, err := g.valuator.CalculateEntityValue(ctx, g.nodes[entityID].Profile, stake.Components)
	if err != nil {
		return 0, err
	}
	return res.TotalValue, nil
}

// Validate checks that every dependency targets a registered deal and that
// the dependency relation is acyclic.  Fail fast: the first defect aborts.
func (g *DealHypergraph) Validate() error {
	for _, id := range g.dealOrder {
		for _, dep := range g.deals[id].Dependencies {
			if _, ok := g.deals[dep]; !ok {
				return errors.MalformedHyperedge(
					fmt.Sprintf("deal %s depends on unregistered deal %s", id, dep))
			}
		}
	}
	return g.detectCycle()
}

// ─────────────────────────────────────────────────────────────────────────────
// accessors
// ─────────────────────────────────────────────────────────────────────────────

// Entity returns the node for id, or nil.
func (g *DealHypergraph) Entity(id common.ID) *EntityNode { return g.nodes[id] }

// Deal returns the hyperedge for id, or nil.
func (g *DealHypergraph) Deal(id common.ID) *DealHyperedge { return g.deals[id] }

// EntityCount reports the number of registered nodes.
func (g *DealHypergraph) EntityCount() int { return len(g.nodes) }

// DealCount reports the number of registered hyperedges.
func (g *DealHypergraph) DealCount() int { return len(g.deals) }

// EntityIDs returns all node IDs in ascending order.
func (g *DealHypergraph) EntityIDs() []common.ID {
	ids := make([]common.ID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// DealIDs returns all hyperedge IDs in insertion order.
func (g *DealHypergraph) DealIDs() []common.ID {
	out := make([]common.ID, len(g.dealOrder))
	copy(out, g.dealOrder)
	return out
}

// DealsForEntity returns the hyperedges touching entityID, in insertion
// order.  Unknown entities return nil.
func (g *DealHypergraph) DealsForEntity(entityID common.ID) []*DealHyperedge {
	ids := g.byEntity[entityID]
	out := make([]*DealHyperedge, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.deals[id])
	}
	return out
}

// ValueEdges decomposes the deal into its pairwise projection.  Pairs appear
// in participant-ID order.
func (g *DealHypergraph) ValueEdges(dealID common.ID) ([]ValueEdge, error) {
	deal, ok := g.deals[dealID]
	if !ok {
		return nil, errors.NotFound("deal " + dealID.String() + " not in graph")
	}

	participants := make([]common.ID, len(deal.Participants))
	copy(participants, deal.Participants)
	sort.Slice(participants, func(i, j int) bool { return participants[i] < participants[j] })

	n := float64(len(participants))
	edges := make([]ValueEdge, 0, len(participants)*(len(participants)-1)/2)
	for i := 0; i < len(participants); i++ {
		for j := i + 1; j < len(participants); j++ {
			a, b := participants[i], participants[j]
			edges = append(edges, ValueEdge{
				DealID: dealID,
				A:      a,
				B:      b,
				Weight: (deal.resolved[a] + deal.resolved[b]) / (2 * (n - 1)),
			})
		}
	}
	return edges, nil
}

// ResetCumulative zeroes every node's run-local cumulative value.
func (g *DealHypergraph) ResetCumulative() {
	for _, node := range g.nodes {
		node.CumulativeValue = 0
	}
}

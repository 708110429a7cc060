// Package roadmap searches deal hypergraphs for dependency-respecting
// execution orders that maximize aggregate value while keeping protected
// entities out of the red.  Small graphs are solved exhaustively; larger
// ones use a greedy frontier search with fixed-depth lookahead.  Every
// search is budgeted: when the context deadline or the branch budget
// expires, the best roadmap found so far is returned with Complete=false —
// an incomplete optimization is a result state, never an error.
package roadmap

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/turtacn/WinWin-Intelligence/internal/domain/hypergraph"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// Tunables parameterizes the search.  Zero values take the defaults below.
type Tunables struct {
	// LookaheadDepth is how many picks ahead the greedy search evaluates.
	LookaheadDepth int `mapstructure:"lookahead_depth" json:"lookahead_depth"`

	// WeightOwnValue, WeightWinFlip and WeightConnectivity combine into the
	// candidate score: a deal's aggregate value, the value it directs at
	// currently losing participants, and a bonus per unplaced deal sharing
	// a participant.
	WeightOwnValue     float64 `mapstructure:"weight_own_value" json:"weight_own_value"`
	WeightWinFlip      float64 `mapstructure:"weight_win_flip" json:"weight_win_flip"`
	WeightConnectivity float64 `mapstructure:"weight_connectivity" json:"weight_connectivity"`

	// ExhaustiveThreshold is the deal count below which every valid order
	// is enumerated instead of searched greedily.
	ExhaustiveThreshold int `mapstructure:"exhaustive_threshold" json:"exhaustive_threshold"`

	// MaxBranches caps candidate evaluations per run.
	MaxBranches int64 `mapstructure:"max_branches" json:"max_branches"`

	// PoolSize bounds concurrent branch evaluation; ParallelThreshold is
	// the candidate count below which scoring stays sequential.
	PoolSize          int `mapstructure:"pool_size" json:"pool_size"`
	ParallelThreshold int `mapstructure:"parallel_threshold" json:"parallel_threshold"`
}

// Search defaults.
const (
	DefaultLookaheadDepth      = 2
	DefaultWeightOwnValue      = 0.6
	DefaultWeightWinFlip       = 0.3
	DefaultWeightConnectivity  = 0.1
	DefaultExhaustiveThreshold = 8
	DefaultMaxBranches         = 200_000
	DefaultParallelThreshold   = 16
)

func (t Tunables) withDefaults() Tunables {
	if t.LookaheadDepth <= 0 {
		t.LookaheadDepth = DefaultLookaheadDepth
	}
	if t.WeightOwnValue == 0 && t.WeightWinFlip == 0 && t.WeightConnectivity == 0 {
		t.WeightOwnValue = DefaultWeightOwnValue
		t.WeightWinFlip = DefaultWeightWinFlip
		t.WeightConnectivity = DefaultWeightConnectivity
	}
	if t.ExhaustiveThreshold <= 0 {
		t.ExhaustiveThreshold = DefaultExhaustiveThreshold
	}
	if t.MaxBranches <= 0 {
		t.MaxBranches = DefaultMaxBranches
	}
	if t.PoolSize <= 0 {
		t.PoolSize = defaultPoolSize()
	}
	if t.ParallelThreshold <= 0 {
		t.ParallelThreshold = DefaultParallelThreshold
	}
	return t
}

// OptimizeOptions carries per-run parameters.
type OptimizeOptions struct {
	// ProtectedEntities must never see a negative cumulative value at any
	// roadmap prefix; candidate deals that would force one are skipped.
	ProtectedEntities []common.ID `json:"protected_entities"`
}

// Optimizer searches hypergraphs for roadmaps and assesses them.
type Optimizer interface {
	// Optimize produces the best roadmap the budget allows.  An empty
	// graph yields an empty complete roadmap.
	Optimize(ctx context.Context, g *hypergraph.DealHypergraph, opts OptimizeOptions) (*hypergraph.DealRoadmap, error)

	// Simulate runs a Monte Carlo assessment of an existing roadmap.
	Simulate(ctx context.Context, g *hypergraph.DealHypergraph, roadmap *hypergraph.DealRoadmap, params SimulationParams) (*SimulationReport, error)
}

type optimizer struct {
	logger   logging.Logger
	metrics  *prometheus.EngineMetrics
	tunables Tunables
	pool     *branchPool
}

// OptimizerConfig carries Optimizer dependencies.
type OptimizerConfig struct {
	Logger   logging.Logger
	Metrics  *prometheus.EngineMetrics
	Tunables Tunables
}

// NewOptimizer constructs the standard Optimizer.
func NewOptimizer(cfg OptimizerConfig) (Optimizer, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	t := cfg.Tunables.withDefaults()
	return &optimizer{
		logger:   cfg.Logger.Named("optimizer"),
		metrics:  cfg.Metrics,
		tunables: t,
		pool:     newBranchPool(t.PoolSize, t.ParallelThreshold),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Search state
// ─────────────────────────────────────────────────────────────────────────────

// budget is shared across every goroutine of one run.
type budget struct {
	branches  atomic.Int64
	max       int64
	exhausted atomic.Bool
}

// spend consumes one branch; false means the branch budget or the context
// expired and the search should wind down with its best-so-far.
func (b *budget) spend(ctx context.Context) bool {
	if b.branches.Add(1) > b.max || ctx.Err() != nil {
		b.exhausted.Store(true)
		return false
	}
	return true
}

type searchState struct {
	graph      *hypergraph.DealHypergraph
	protected  map[common.ID]bool
	placed     map[common.ID]bool
	order      []common.ID
	cumulative map[common.ID]float64
	budget     *budget
}

func newSearchState(g *hypergraph.DealHypergraph, opts OptimizeOptions, maxBranches int64) *searchState {
	protected := make(map[common.ID]bool, len(opts.ProtectedEntities))
	for _, id := range opts.ProtectedEntities {
		protected[id] = true
	}
	return &searchState{
		graph:      g,
		protected:  protected,
		placed:     make(map[common.ID]bool, g.DealCount()),
		cumulative: make(map[common.ID]float64, g.EntityCount()),
		budget:     &budget{max: maxBranches},
	}
}

// clone copies the mutable placement state and shares the graph, the
// protection set and the budget.  Lookahead scoring works on clones so
// candidate subtrees can be explored concurrently.
func (s *searchState) clone() *searchState {
	placed := make(map[common.ID]bool, len(s.placed))
	for k, v := range s.placed {
		placed[k] = v
	}
	cumulative := make(map[common.ID]float64, len(s.cumulative))
	for k, v := range s.cumulative {
		cumulative[k] = v
	}
	return &searchState{
		graph:      s.graph,
		protected:  s.protected,
		placed:     placed,
		order:      append([]common.ID(nil), s.order...),
		cumulative: cumulative,
		budget:     s.budget,
	}
}

// frontier lists unplaced deals whose dependencies are all placed, sorted by
// deal ID for determinism.
func (s *searchState) frontier() []common.ID {
	var out []common.ID
	for _, id := range s.graph.DealIDs() {
		if s.placed[id] {
			continue
		}
		ready := true
		for _, dep := range s.graph.Deal(id).Dependencies {
			if !s.placed[dep] {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// safe reports whether placing dealID keeps every protected participant's
// cumulative value non-negative.
func (s *searchState) safe(dealID common.ID) bool {
	deal := s.graph.Deal(dealID)
	for _, p := range deal.Participants {
		if s.protected[p] && s.cumulative[p]+deal.ResolvedValue(p) < 0 {
			return false
		}
	}
	return true
}

func (s *searchState) place(dealID common.ID) {
	deal := s.graph.Deal(dealID)
	s.placed[dealID] = true
	s.order = append(s.order, dealID)
	for _, p := range deal.Participants {
		s.cumulative[p] += deal.ResolvedValue(p)
	}
}

func (s *searchState) unplace(dealID common.ID) {
	deal := s.graph.Deal(dealID)
	delete(s.placed, dealID)
	s.order = s.order[:len(s.order)-1]
	for _, p := range deal.Participants {
		s.cumulative[p] -= deal.ResolvedValue(p)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Optimize
// ─────────────────────────────────────────────────────────────────────────────

func (o *optimizer) Optimize(ctx context.Context, g *hypergraph.DealHypergraph, opts OptimizeOptions) (*hypergraph.DealRoadmap, error) {
	if g == nil {
		return nil, errors.InvalidParam("optimizer requires a graph")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	for _, id := range opts.ProtectedEntities {
		if g.Entity(id) == nil {
			return nil, errors.UnknownEntity("protected entity " + id.String() + " not in graph")
		}
	}

	start := time.Now()
	state := newSearchState(g, opts, o.tunables.MaxBranches)

	strategy := "greedy"
	var order []common.ID
	if g.DealCount() == 0 {
		o.logger.Warn("optimizing empty hypergraph")
	} else if g.DealCount() < o.tunables.ExhaustiveThreshold {
		strategy = "exhaustive"
		order = o.exhaustive(ctx, state)
	} else {
		order = o.greedy(ctx, state)
	}

	roadmap, err := g.BuildRoadmap(order)
	if err != nil {
		// The search only emits valid prefixes; a failure here is a bug.
		return nil, errors.Wrap(err, errors.CodeOptFailed, "assembling searched roadmap")
	}
	roadmap.Complete = !state.budget.exhausted.Load()
	roadmap.ExcludedEntities = excludedEntities(g, state)

	elapsed := time.Since(start)
	o.metrics.RecordOptimization(strategy, elapsed, state.budget.branches.Load(), roadmap.Len(), roadmap.Complete)
	o.logger.Info("roadmap optimized",
		logging.String("strategy", strategy),
		logging.Int("deals_placed", roadmap.Len()),
		logging.Int("deals_total", g.DealCount()),
		logging.Int64("branches", state.budget.branches.Load()),
		logging.Bool("complete", roadmap.Complete),
		logging.Float64("total_value", roadmap.TotalValue),
		logging.Duration("elapsed", elapsed))

	return roadmap, nil
}

// excludedEntities collects protected entities whose win constraint kept
// deals off the roadmap, sorted ascending.
func excludedEntities(g *hypergraph.DealHypergraph, state *searchState) []common.ID {
	seen := make(map[common.ID]bool)
	for _, dealID := range g.DealIDs() {
		if state.placed[dealID] {
			continue
		}
		deal := g.Deal(dealID)
		for _, p := range deal.Participants {
			if state.protected[p] && state.cumulative[p]+deal.ResolvedValue(p) < 0 {
				seen[p] = true
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]common.ID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Greedy frontier search with lookahead
// ─────────────────────────────────────────────────────────────────────────────

func (o *optimizer) greedy(ctx context.Context, state *searchState) []common.ID {
	for {
		candidates := make([]common.ID, 0)
		for _, id := range state.frontier() {
			if state.safe(id) {
				candidates = append(candidates, id)
			}
		}
		if len(candidates) == 0 {
			return state.order
		}
		if !state.budget.spend(ctx) {
			return state.order
		}

		scores := o.pool.scoreAll(candidates, func(id common.ID) float64 {
			return o.scoreWithLookahead(ctx, state.clone(), id, o.tunables.LookaheadDepth)
		})

		// Best score wins; ties fall to the smaller deal ID, which the
		// pre-sorted candidate slice gives for free with strict >.
		best := 0
		for i := 1; i < len(candidates); i++ {
			if scores[i] > scores[best] {
				best = i
			}
		}
		state.place(candidates[best])
	}
}

// scoreWithLookahead evaluates placing dealID now plus the best continuation
// reachable within depth further picks.  The caller hands each top-level
// candidate its own state clone; within one clone the subtree is explored by
// backtracking, so no further copies are needed.
func (o *optimizer) scoreWithLookahead(ctx context.Context, state *searchState, dealID common.ID, depth int) float64 {
	score := o.immediateScore(state, dealID)
	if depth <= 1 {
		return score
	}
	if !state.budget.spend(ctx) {
		return score
	}

	state.place(dealID)
	bestNext := 0.0
	for _, next := range state.frontier() {
		if !state.safe(next) {
			continue
		}
		if v := o.scoreWithLookahead(ctx, state, next, depth-1); v > bestNext {
			bestNext = v
		}
	}
	state.unplace(dealID)

	return score + bestNext
}

// immediateScore combines the three weighted signals for one candidate.
func (o *optimizer) immediateScore(state *searchState, dealID common.ID) float64 {
	deal := state.graph.Deal(dealID)

	ownValue := deal.AggregateValue()

	// Value directed at participants that are not yet winning.
	var winFlip float64
	for _, p := range deal.Participants {
		if state.cumulative[p] <= 0 {
			if v := deal.ResolvedValue(p); v > 0 {
				winFlip += v
			}
		}
	}

	// Unplaced deals sharing a participant: placing this deal progresses
	// toward them.
	var connectivity float64
	counted := make(map[common.ID]bool)
	for _, p := range deal.Participants {
		for _, other := range state.graph.DealsForEntity(p) {
			if other.DealID != dealID && !state.placed[other.DealID] && !counted[other.DealID] {
				counted[other.DealID] = true
				connectivity++
			}
		}
	}

	return o.tunables.WeightOwnValue*ownValue +
		o.tunables.WeightWinFlip*winFlip +
		o.tunables.WeightConnectivity*connectivity
}

// ─────────────────────────────────────────────────────────────────────────────
// Exhaustive enumeration for small graphs
// ─────────────────────────────────────────────────────────────────────────────

func (o *optimizer) exhaustive(ctx context.Context, state *searchState) []common.ID {
	var (
		bestOrder []common.ID
		bestScore float64
		found     bool
	)

	var dfs func()
	dfs = func() {
		if !state.budget.spend(ctx) {
			return
		}

		extended := false
		for _, id := range state.frontier() {
			if !state.safe(id) {
				continue
			}
			extended = true
			state.place(id)
			dfs()
			state.unplace(id)
			if state.budget.exhausted.Load() {
				return
			}
		}

		if !extended {
			// Leaf: nothing more can be placed.  Candidates are visited
			// in deal-ID order, so with strict > the first optimum found
			// is the ID-ascending tie winner.
			score := o.sequenceScore(state)
			if !found || score > bestScore {
				found = true
				bestScore = score
				bestOrder = append([]common.ID(nil), state.order...)
			}
		}
	}
	dfs()

	if bestOrder == nil {
		return state.order
	}
	// Replay the winning order into the state so exclusion accounting and
	// cumulative totals reflect the returned roadmap.
	for len(state.order) > 0 {
		state.unplace(state.order[len(state.order)-1])
	}
	for _, id := range bestOrder {
		state.place(id)
	}
	return bestOrder
}

// sequenceScore ranks complete sequences: aggregate value first, then how
// well the minimum cumulative entity holds up, then how early value lands.
func (o *optimizer) sequenceScore(state *searchState) float64 {
	var total float64
	minCumulative := 0.0
	first := true
	for _, v := range state.cumulative {
		if first || v < minCumulative {
			minCumulative = v
			first = false
		}
	}

	var early float64
	for i, id := range state.order {
		stepValue := state.graph.Deal(id).AggregateValue()
		total += stepValue
		early += stepValue / float64(1+i)
	}

	return o.tunables.WeightOwnValue*total +
		o.tunables.WeightWinFlip*minCumulative +
		o.tunables.WeightConnectivity*early
}

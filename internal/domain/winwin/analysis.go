// Package winwin evaluates a population of entities over a shared deal: who
// wins, who loses, how value is spread, and what each loser would need to
// flip.  It also proposes corrective rebalancing plans for non-win-win
// outcomes.
package winwin

import (
	"context"
	"math"
	"sort"

	"github.com/turtacn/WinWin-Intelligence/internal/domain/entity"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Verdict
// ─────────────────────────────────────────────────────────────────────────────

// ImprovementOpportunity tells a losing entity where additional value would
// most plausibly come from and how much it needs to flip to a win.
type ImprovementOpportunity struct {
	EntityID common.ID `json:"entity_id"`

	// FocusDimension is the dimension with the largest positive aggregate
	// contribution for this entity; the least negative when none is
	// positive.
	FocusDimension common.Dimension `json:"focus_dimension"`

	// Deficit is how far below zero the entity's total sits (>= 0).
	Deficit float64 `json:"deficit"`

	// RequiredImprovement is strictly greater than Deficit: closing the gap
	// exactly still loses, since a zero total is not a win.
	RequiredImprovement float64 `json:"required_improvement"`
}

// Verdict is the population-level evaluation result.
type Verdict struct {
	// IsWinWin is true when every entity's total value is strictly positive.
	IsWinWin bool `json:"is_win_win"`

	// EntityValues holds the full valuation per entity.
	EntityValues map[common.ID]*entity.ValueResult `json:"entity_values"`

	// ValueDistribution gives each entity's share of the positive-value
	// sum.  Negative totals contribute zero; an all-nonpositive population
	// splits into equal shares.  Shares always sum to 1 for a non-empty
	// population.
	ValueDistribution map[common.ID]float64 `json:"value_distribution"`

	// ValueInequalityGini measures spread over the raw total-value vector:
	// 0 for a perfectly equal population, approaching 1 as value
	// concentrates.
	ValueInequalityGini float64 `json:"value_inequality_gini"`

	// ImprovementOpportunities lists one entry per losing entity, ordered
	// by entity ID.
	ImprovementOpportunities []ImprovementOpportunity `json:"improvement_opportunities"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Analyzer
// ─────────────────────────────────────────────────────────────────────────────

// Analyzer produces win-win verdicts over entity populations.
type Analyzer interface {
	// AnalyzeDeal values every profiled entity over its components and
	// derives the population verdict.  Structural defects fail fast; an
	// empty population yields an empty win-win verdict with a warning.
	AnalyzeDeal(ctx context.Context, profiles map[common.ID]entity.Profile, components map[common.ID][]entity.ValueComponent) (*Verdict, error)
}

type analyzer struct {
	valuator entity.Valuator
	logger   logging.Logger
}

// AnalyzerConfig carries Analyzer dependencies.
type AnalyzerConfig struct {
	Valuator entity.Valuator
	Logger   logging.Logger
}

// NewAnalyzer constructs the standard Analyzer.
func NewAnalyzer(cfg AnalyzerConfig) (Analyzer, error) {
	if cfg.Valuator == nil {
		return nil, errors.InvalidParam("analyzer requires a valuator")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	return &analyzer{valuator: cfg.Valuator, logger: cfg.Logger.Named("winwin")}, nil
}

func (a *analyzer) AnalyzeDeal(ctx context.Context, profiles map[common.ID]entity.Profile, components map[common.ID][]entity.ValueComponent) (*Verdict, error) {
	for id := range components {
		if _, ok := profiles[id]; !ok {
			return nil, errors.UnknownEntity("components reference unprofiled entity " + id.String())
		}
	}
	if len(profiles) == 0 {
		a.logger.Warn("analyzing empty population")
		return &Verdict{
			IsWinWin:          true,
			EntityValues:      map[common.ID]*entity.ValueResult{},
			ValueDistribution: map[common.ID]float64{},
		}, nil
	}

	ids := sortedIDs(profiles)

	verdict := &Verdict{
		IsWinWin:     true,
		EntityValues: make(map[common.ID]*entity.ValueResult, len(ids)),
	}
	totals := make([]float64, 0, len(ids))

	for _, id := range ids {
		res, err := a.valuator.CalculateEntityValue(ctx, profiles[id], components[id])
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeEvalFailed, "valuing entity "+id.String())
		}
		verdict.EntityValues[id] = res
		totals = append(totals, res.TotalValue)
		if !res.IsWin {
			verdict.IsWinWin = false
		}
	}

	verdict.ValueDistribution = distribution(ids, verdict.EntityValues)
	verdict.ValueInequalityGini = gini(totals)

	for _, id := range ids {
		res := verdict.EntityValues[id]
		if res.IsWin {
			continue
		}
		deficit := -res.TotalValue
		verdict.ImprovementOpportunities = append(verdict.ImprovementOpportunities, ImprovementOpportunity{
			EntityID:            id,
			FocusDimension:      focusDimension(res.ByDimension),
			Deficit:             deficit,
			RequiredImprovement: deficit + improvementMargin,
		})
	}

	a.logger.Debug("deal analyzed",
		logging.Int("entities", len(ids)),
		logging.Bool("win_win", verdict.IsWinWin),
		logging.Float64("gini", verdict.ValueInequalityGini))

	return verdict, nil
}

// improvementMargin keeps RequiredImprovement strictly above the deficit.
const improvementMargin = 1.0

// ─────────────────────────────────────────────────────────────────────────────
// derivations
// ─────────────────────────────────────────────────────────────────────────────

// distribution assigns each entity its share of the positive-value sum.
// When no entity holds positive value the population splits equally.
func distribution(ids []common.ID, values map[common.ID]*entity.ValueResult) map[common.ID]float64 {
	shares := make(map[common.ID]float64, len(ids))

	var positiveSum float64
	for _, id := range ids {
		if v := values[id].TotalValue; v > 0 {
			positiveSum += v
		}
	}

	if positiveSum == 0 {
		equal := 1.0 / float64(len(ids))
		for _, id := range ids {
			shares[id] = equal
		}
		return shares
	}

	for _, id := range ids {
		if v := values[id].TotalValue; v > 0 {
			shares[id] = v / positiveSum
		} else {
			shares[id] = 0
		}
	}
	return shares
}

// gini computes the mean absolute pairwise difference over twice the mean:
//
//	G = Σ_i Σ_j |x_i − x_j| / (2 n² mean)
//
// The raw value vector is used as-is.  Populations with a non-positive mean
// report 0: inequality over value that nets to nothing is not meaningful.
func gini(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	if mean <= 0 {
		return 0
	}

	var diff float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			diff += math.Abs(values[i] - values[j])
		}
	}
	// diff covers unordered pairs; the ordered-pair sum is twice that.
	return diff / (float64(n) * float64(n) * mean)
}

// focusDimension picks the dimension a loser should grow: the largest
// positive aggregate, falling back to the least negative, scanning in the
// canonical dimension order for determinism.  Entities with no components
// default to economic.
func focusDimension(byDim map[common.Dimension]float64) common.Dimension {
	best := common.DimensionEconomic
	bestVal := math.Inf(-1)
	for _, d := range common.AllDimensions {
		v, ok := byDim[d]
		if !ok {
			continue
		}
		if v > bestVal {
			best, bestVal = d, v
		}
	}
	return best
}

func sortedIDs[V any](m map[common.ID]V) []common.ID {
	ids := make([]common.ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

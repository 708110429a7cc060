package winwin

import (
	"context"
	"sort"

	"github.com/turtacn/WinWin-Intelligence/internal/domain/entity"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Rebalancer — corrective value redistribution
// ─────────────────────────────────────────────────────────────────────────────

// Transfer moves value from a surplus entity to a losing one.
type Transfer struct {
	From   common.ID `json:"from"`
	To     common.ID `json:"to"`
	Amount float64   `json:"amount"`
}

// ExternalTopUp injects outside value when internal surplus cannot cover a
// loser's requirement.
type ExternalTopUp struct {
	To     common.ID `json:"to"`
	Amount float64   `json:"amount"`
}

// RebalancePlan is a proposed correction for a non-win-win population plus
// the verdict that results from applying it.
type RebalancePlan struct {
	Transfers        []Transfer      `json:"transfers"`
	ExternalTopUps   []ExternalTopUp `json:"external_top_ups"`
	ExternalTotal    float64         `json:"external_total"`
	ResultingVerdict *Verdict        `json:"resulting_verdict"`
}

// Rebalancer proposes corrective plans for populations that fail the
// win-win test.
type Rebalancer interface {
	// Rebalance computes a transfer plan lifting every loser strictly above
	// zero, drawing pro rata on entities whose totals exceed the surplus
	// floor and topping up externally when surplus runs out.  The returned
	// plan's ResultingVerdict is always win-win.  An already win-win
	// population returns an empty plan.
	Rebalance(ctx context.Context, profiles map[common.ID]entity.Profile, components map[common.ID][]entity.ValueComponent) (*RebalancePlan, error)
}

type rebalancer struct {
	analyzer Analyzer
	logger   logging.Logger

	surplusFloor float64
}

// RebalancerConfig carries Rebalancer dependencies and tunables.
type RebalancerConfig struct {
	Analyzer Analyzer
	Logger   logging.Logger

	// SurplusFloor is the total value a donor entity must retain after
	// transfers.  Must be >= 0; the default keeps every donor a clear
	// winner.
	SurplusFloor float64
}

// DefaultSurplusFloor keeps donors strictly winning after transfers.
const DefaultSurplusFloor = 1.0

// NewRebalancer constructs the standard Rebalancer.
func NewRebalancer(cfg RebalancerConfig) (Rebalancer, error) {
	if cfg.Analyzer == nil {
		return nil, errors.InvalidParam("rebalancer requires an analyzer")
	}
	if cfg.SurplusFloor < 0 {
		return nil, errors.InvalidParam("surplus floor must be >= 0")
	}
	if cfg.SurplusFloor == 0 {
		cfg.SurplusFloor = DefaultSurplusFloor
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	return &rebalancer{
		analyzer:     cfg.Analyzer,
		logger:       cfg.Logger.Named("rebalancer"),
		surplusFloor: cfg.SurplusFloor,
	}, nil
}

func (r *rebalancer) Rebalance(ctx context.Context, profiles map[common.ID]entity.Profile, components map[common.ID][]entity.ValueComponent) (*RebalancePlan, error) {
	verdict, err := r.analyzer.AnalyzeDeal(ctx, profiles, components)
	if err != nil {
		return nil, err
	}
	if verdict.IsWinWin {
		return &RebalancePlan{ResultingVerdict: verdict}, nil
	}

	// Requirements per loser come straight off the verdict; donors are
	// entities holding more than the floor.
	needs := make(map[common.ID]float64, len(verdict.ImprovementOpportunities))
	var totalNeed float64
	for _, opp := range verdict.ImprovementOpportunities {
		needs[opp.EntityID] = opp.RequiredImprovement
		totalNeed += opp.RequiredImprovement
	}

	donorIDs := make([]common.ID, 0, len(verdict.EntityValues))
	surplus := make(map[common.ID]float64)
	var totalSurplus float64
	for id, res := range verdict.EntityValues {
		if s := res.TotalValue - r.surplusFloor; s > 0 {
			donorIDs = append(donorIDs, id)
			surplus[id] = s
			totalSurplus += s
		}
	}
	sort.Slice(donorIDs, func(i, j int) bool { return donorIDs[i] < donorIDs[j] })

	plan := &RebalancePlan{}
	drawn := totalNeed
	if drawn > totalSurplus {
		drawn = totalSurplus
	}

	adjusted := cloneComponents(components)
	loserIDs := make([]common.ID, 0, len(needs))
	for _, opp := range verdict.ImprovementOpportunities {
		loserIDs = append(loserIDs, opp.EntityID)
	}

	for _, to := range loserIDs {
		need := needs[to]

		// Internal transfers pro rata over donor surplus.
		if totalSurplus > 0 && drawn > 0 {
			fromInternal := need * drawn / totalNeed
			for _, from := range donorIDs {
				amount := fromInternal * surplus[from] / totalSurplus
				if amount <= 0 {
					continue
				}
				plan.Transfers = append(plan.Transfers, Transfer{From: from, To: to, Amount: amount})
				adjusted[from] = append(adjusted[from], transferComponent(-amount))
				adjusted[to] = append(adjusted[to], transferComponent(amount))
				need -= amount
			}
		}

		// External top-up for whatever internal surplus could not cover.
		if need > 1e-9 {
			plan.ExternalTopUps = append(plan.ExternalTopUps, ExternalTopUp{To: to, Amount: need})
			plan.ExternalTotal += need
			adjusted[to] = append(adjusted[to], transferComponent(need))
		}
	}

	resulting, err := r.analyzer.AnalyzeDeal(ctx, profiles, adjusted)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeRebalanceInfeasible, "verifying rebalanced population")
	}
	plan.ResultingVerdict = resulting

	r.logger.Info("rebalance plan computed",
		logging.Int("transfers", len(plan.Transfers)),
		logging.Int("top_ups", len(plan.ExternalTopUps)),
		logging.Float64("external_total", plan.ExternalTotal),
		logging.Bool("win_win", resulting.IsWinWin))

	return plan, nil
}

// transferComponent represents a rebalancing adjustment as a certain,
// immediate economic component so re-verification runs through the ordinary
// valuation path.
func transferComponent(amount float64) entity.ValueComponent {
	return entity.ValueComponent{
		ComponentID: common.NewID(),
		Dimension:   common.DimensionEconomic,
		Amount:      amount,
		Timeline:    []entity.TimelineEntry{{Period: 0, Amount: amount}},
		Probability: 1,
	}
}

func cloneComponents(components map[common.ID][]entity.ValueComponent) map[common.ID][]entity.ValueComponent {
	out := make(map[common.ID][]entity.ValueComponent, len(components))
	for id, comps := range components {
		cp := make([]entity.ValueComponent, len(comps))
		copy(cp, comps)
		out[id] = cp
	}
	return out
}

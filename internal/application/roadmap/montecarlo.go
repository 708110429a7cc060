package roadmap

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/turtacn/WinWin-Intelligence/internal/domain/hypergraph"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

// SimulationParams parameterizes one Monte Carlo assessment.  Each deal's
// own RiskProfile supplies its success probability and value variance; the
// fields here control the run itself.
type SimulationParams struct {
	// Iterations is the number of simulated roadmap executions.
	// Defaults to 1000.
	Iterations int `json:"iterations"`

	// Seed makes the run reproducible.  Two runs with the same seed,
	// graph and roadmap produce identical reports.
	Seed int64 `json:"seed"`

	// DependencyFailureImpact in [0,1] scales down the success probability
	// of a deal whose dependency failed in the current iteration
	// (0.5 halves it).  Defaults to 0.5.
	DependencyFailureImpact float64 `json:"dependency_failure_impact"`
}

// DealCriticality ranks a deal by how much simulated value its failures
// removed.
type DealCriticality struct {
	DealID common.ID `json:"deal_id"`

	// FailureRate is the fraction of iterations where the deal failed.
	FailureRate float64 `json:"failure_rate"`

	// ValueAtStake is the deal's aggregate value.
	ValueAtStake float64 `json:"value_at_stake"`

	// Criticality is FailureRate × ValueAtStake; the report sorts by it.
	Criticality float64 `json:"criticality"`
}

// SimulationReport summarizes the simulated outcome distribution.
type SimulationReport struct {
	Iterations int `json:"iterations"`

	// SuccessRate is the fraction of iterations where every deal on the
	// roadmap succeeded.
	SuccessRate float64 `json:"success_rate"`

	// ExpectedValue is the mean realized total value.
	ExpectedValue float64 `json:"expected_value"`

	// ValueAtRisk5 is the 5th-percentile realized total: 95% of simulated
	// executions did at least this well.
	ValueAtRisk5 float64 `json:"value_at_risk_5"`

	// CriticalDeals lists deals by descending criticality.  Deals that
	// never failed are omitted.
	CriticalDeals []DealCriticality `json:"critical_deals"`
}

const (
	defaultIterations       = 1000
	defaultDependencyImpact = 0.5
)

// Simulate implements Optimizer.
func (o *optimizer) Simulate(ctx context.Context, g *hypergraph.DealHypergraph, roadmap *hypergraph.DealRoadmap, params SimulationParams) (*SimulationReport, error) {
	if g == nil || roadmap == nil {
		return nil, errors.InvalidParam("simulation requires a graph and a roadmap")
	}
	if params.Iterations < 0 {
		return nil, errors.New(errors.CodeSimulationFailed, "iterations must be >= 0")
	}
	if params.Iterations == 0 {
		params.Iterations = defaultIterations
	}
	if params.DependencyFailureImpact < 0 || params.DependencyFailureImpact > 1 {
		return nil, errors.New(errors.CodeSimulationFailed, "dependency failure impact outside [0,1]")
	}
	if params.DependencyFailureImpact == 0 {
		params.DependencyFailureImpact = defaultDependencyImpact
	}
	for _, dealID := range roadmap.Order {
		if g.Deal(dealID) == nil {
			return nil, errors.NotFound("roadmap references deal " + dealID.String() + " not in graph")
		}
	}

	start := time.Now()
	rng := rand.New(rand.NewSource(params.Seed))

	totals := make([]float64, params.Iterations)
	failures := make(map[common.ID]int, len(roadmap.Order))
	allSucceeded := 0

	for i := 0; i < params.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CodeTimeout, "simulation cancelled")
		}

		failed := make(map[common.ID]bool)
		var total float64
		for _, dealID := range roadmap.Order {
			deal := g.Deal(dealID)

			p := deal.Risk.SuccessProbability
			for _, dep := range deal.Dependencies {
				if failed[dep] {
					p *= 1 - params.DependencyFailureImpact
				}
			}

			if rng.Float64() >= p {
				failed[dealID] = true
				failures[dealID]++
				continue
			}

			value := deal.AggregateValue()
			if v := deal.Risk.ValueVariance; v > 0 {
				value *= 1 + (rng.Float64()*2-1)*v
			}
			total += value
		}
		totals[i] = total
		if len(failed) == 0 {
			allSucceeded++
		}
	}

	report := &SimulationReport{
		Iterations:  params.Iterations,
		SuccessRate: float64(allSucceeded) / float64(params.Iterations),
	}

	var sum float64
	for _, t := range totals {
		sum += t
	}
	report.ExpectedValue = sum / float64(params.Iterations)

	sort.Float64s(totals)
	report.ValueAtRisk5 = totals[len(totals)/20]

	for dealID, count := range failures {
		value := g.Deal(dealID).AggregateValue()
		rate := float64(count) / float64(params.Iterations)
		report.CriticalDeals = append(report.CriticalDeals, DealCriticality{
			DealID:       dealID,
			FailureRate:  rate,
			ValueAtStake: value,
			Criticality:  rate * value,
		})
	}
	sort.Slice(report.CriticalDeals, func(i, j int) bool {
		if report.CriticalDeals[i].Criticality != report.CriticalDeals[j].Criticality {
			return report.CriticalDeals[i].Criticality > report.CriticalDeals[j].Criticality
		}
		return report.CriticalDeals[i].DealID < report.CriticalDeals[j].DealID
	})

	elapsed := time.Since(start)
	o.metrics.RecordSimulation(elapsed, params.Iterations)
	o.logger.Info("roadmap simulated",
		logging.Int("iterations", params.Iterations),
		logging.Float64("success_rate", report.SuccessRate),
		logging.Float64("expected_value", report.ExpectedValue),
		logging.Float64("value_at_risk_5", report.ValueAtRisk5),
		logging.Duration("elapsed", elapsed))

	return report, nil
}

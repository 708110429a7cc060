package hypergraph

import (
	"fmt"

	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

// RoadmapStep records one placed deal and the cumulative per-entity state
// after it.
type RoadmapStep struct {
	DealID common.ID `json:"deal_id"`

	// ValueByEntity is the value this deal contributes to each participant.
	ValueByEntity map[common.ID]float64 `json:"value_by_entity"`

	// CumulativeByEntity is the running total per entity after this step,
	// covering every entity the roadmap has touched so far.
	CumulativeByEntity map[common.ID]float64 `json:"cumulative_by_entity"`
}

// DealRoadmap is an ordered, dependency-respecting selection of deals plus
// the value trace of executing them.
type DealRoadmap struct {
	// Order lists placed deal IDs in execution order.
	Order []common.ID `json:"order"`

	// Steps traces cumulative value, one entry per placed deal.
	Steps []RoadmapStep `json:"steps"`

	// TotalValue is the aggregate value over all placed deals.
	TotalValue float64 `json:"total_value"`

	// FinalByEntity is the cumulative value per touched entity at the end.
	FinalByEntity map[common.ID]float64 `json:"final_by_entity"`

	// ExcludedEntities lists protected entities whose win constraint could
	// not be kept, causing deals to be left off the roadmap.
	ExcludedEntities []common.ID `json:"excluded_entities,omitempty"`

	// Complete is false when the optimizer's budget expired before the
	// search finished; the roadmap is then the best found so far.
	Complete bool `json:"complete"`
}

// Len reports the number of placed deals.
func (r *DealRoadmap) Len() int { return len(r.Order) }

// BuildRoadmap replays order against the graph and produces the full value
// trace.  Order must reference registered deals and satisfy the prefix
// property: every dependency of a placed deal appears earlier in order.
// Violations are structural errors.
func (g *DealHypergraph) BuildRoadmap(order []common.ID) (*DealRoadmap, error) {
	roadmap := &DealRoadmap{
		Order:         append([]common.ID(nil), order...),
		Steps:         make([]RoadmapStep, 0, len(order)),
		FinalByEntity: make(map[common.ID]float64),
		Complete:      true,
	}

	placed := make(map[common.ID]int, len(order))
	cumulative := make(map[common.ID]float64)

	for i, dealID := range order {
		deal, ok := g.deals[dealID]
		if !ok {
			return nil, errors.NotFound(fmt.Sprintf("roadmap places unknown deal %s", dealID))
		}
		if _, dup := placed[dealID]; dup {
			return nil, errors.MalformedHyperedge(fmt.Sprintf("roadmap places deal %s twice", dealID))
		}
		for _, dep := range deal.Dependencies {
			if _, ok := placed[dep]; !ok {
				return nil, errors.MalformedHyperedge(
					fmt.Sprintf("roadmap places deal %s before its dependency %s", dealID, dep))
			}
		}
		placed[dealID] = i

		step := RoadmapStep{
			DealID:             dealID,
			ValueByEntity:      make(map[common.ID]float64, len(deal.Participants)),
			CumulativeByEntity: make(map[common.ID]float64, len(cumulative)+len(deal.Participants)),
		}
		for _, p := range deal.Participants {
			v := deal.resolved[p]
			step.ValueByEntity[p] = v
			cumulative[p] += v
			roadmap.TotalValue += v
		}
		for id, v := range cumulative {
			step.CumulativeByEntity[id] = v
		}
		roadmap.Steps = append(roadmap.Steps, step)
	}

	for id, v := range cumulative {
		roadmap.FinalByEntity[id] = v
	}
	return roadmap, nil
}

package hypergraph

import (
	"sort"
	"strings"

	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

// detectCycle runs an iterative three-color DFS over the dependency relation
// and reports the first cycle found as a structural error naming its path.
func (g *DealHypergraph) detectCycle() error {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[common.ID]int, len(g.deals))

	var visit func(id common.ID, path []common.ID) error
	visit = func(id common.ID, path []common.ID) error {
		color[id] = gray
		path = append(path, id)
		for _, dep := range g.deals[id].Dependencies {
			switch color[dep] {
			case gray:
				return errors.CyclicDependency(formatCycle(append(path, dep)))
			case white:
				if err := visit(dep, path); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for _, id := range g.dealOrder {
		if color[id] == white {
			if err := visit(id, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatCycle(path []common.ID) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = id.String()
	}
	return "dependency cycle: " + strings.Join(parts, " -> ")
}

// TopologicalOrder returns a dependency-respecting ordering of every deal via
// Kahn's algorithm.  Among ready deals, higher aggregate value goes first;
// equal values break by deal ID ascending, so the ordering is deterministic
// across runs.  Validation failures (missing dependency targets, cycles)
// surface as structural errors.
func (g *DealHypergraph) TopologicalOrder() ([]common.ID, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	indegree := make(map[common.ID]int, len(g.deals))
	dependents := make(map[common.ID][]common.ID, len(g.deals))
	for _, id := range g.dealOrder {
		indegree[id] += 0
		for _, dep := range g.deals[id].Dependencies {
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	ready := make([]common.ID, 0, len(g.deals))
	for _, id := range g.dealOrder {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]common.ID, 0, len(g.deals))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			vi, vj := g.deals[ready[i]].AggregateValue(), g.deals[ready[j]].AggregateValue()
			if vi != vj {
				return vi > vj
			}
			return ready[i] < ready[j]
		})

		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	// Validate already rejected cycles, so every deal drains.
	return order, nil
}

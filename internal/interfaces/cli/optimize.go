package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/WinWin-Intelligence/internal/application/roadmap"
	"github.com/turtacn/WinWin-Intelligence/internal/domain/hypergraph"
	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

// optimizeResult is the combined document printed by the optimize command.
type optimizeResult struct {
	Roadmap    *hypergraph.DealRoadmap   `json:"roadmap"`
	Simulation *roadmap.SimulationReport `json:"simulation,omitempty"`
}

// NewOptimizeCmd searches a deal hypergraph for an execution roadmap.
func NewOptimizeCmd() *cobra.Command {
	var (
		protect    []string
		simulate   bool
		iterations int
		seed       int64
		export     bool
	)

	cmd := &cobra.Command{
		Use:   "optimize <graph.json>",
		Short: "Search a deal hypergraph for the best execution roadmap",
		Long:  "Optimize reads a graph document (entity profiles plus deals with participants,\nstakes, dependencies and risk), validates it, and searches for the dependency-\nrespecting execution order that maximizes collective value.  Small graphs are\nsolved exhaustively, larger ones with lookahead-guided greedy search.  Pass\n\"-\" to read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			var doc GraphDocument
			if err := readDocument(args[0], &doc); err != nil {
				return err
			}

			g, err := BuildGraph(cmd.Context(), doc, cliCtx.Valuator, cliCtx.Logger)
			if err != nil {
				return err
			}

			opts := roadmap.OptimizeOptions{}
			for _, p := range protect {
				opts.ProtectedEntities = append(opts.ProtectedEntities, common.ID(p))
			}

			result := optimizeResult{}
			result.Roadmap, err = cliCtx.Optimizer.Optimize(cmd.Context(), g, opts)
			if err != nil {
				return err
			}

			if simulate {
				result.Simulation, err = cliCtx.Optimizer.Simulate(cmd.Context(), g, result.Roadmap, roadmap.SimulationParams{
					Iterations: iterations,
					Seed:       seed,
				})
				if err != nil {
					return err
				}
			}

			if export && cliCtx.Exporter != nil {
				if err := cliCtx.Exporter.Export(cmd.Context(), g); err != nil {
					return err
				}
			}

			return PrintResult(cmd, result)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&protect, "protect", nil, "entity IDs that must never go cumulatively negative")
	f.BoolVar(&simulate, "simulate", false, "run a Monte Carlo assessment of the produced roadmap")
	f.IntVar(&iterations, "iterations", 0, "simulation iterations (default 1000)")
	f.Int64Var(&seed, "seed", 0, "simulation random seed")
	f.BoolVar(&export, "export", false, "mirror the graph to Neo4j (requires export.enabled)")

	return cmd
}

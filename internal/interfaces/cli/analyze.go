package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/WinWin-Intelligence/internal/application/analysis"
)

// NewAnalyzeCmd evaluates a population document and prints the verdict.
func NewAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <population.json>",
		Short: "Evaluate whether every entity in a population wins",
		Long:  "Analyze reads a population document (entity profiles with value components),\nvalues each entity under its own preferences, and reports the win-win verdict:\nper-entity totals, value distribution, Gini inequality, and improvement\nopportunities for any entity that loses.  Pass \"-\" to read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			var req analysis.AnalyzeRequest
			if err := readDocument(args[0], &req); err != nil {
				return err
			}

			resp, err := cliCtx.Service.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, resp)
		},
	}
}

// NewRebalanceCmd proposes a corrective plan for a non-win-win population.
func NewRebalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebalance <population.json>",
		Short: "Propose transfers lifting every losing entity to a win",
		Long:  "Rebalance reads the same population document as analyze.  When the verdict is\nalready win-win the plan is empty; otherwise winners' surplus above the floor\nis redistributed pro rata and any remaining shortfall becomes an external\ntop-up recommendation.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			var req analysis.AnalyzeRequest
			if err := readDocument(args[0], &req); err != nil {
				return err
			}

			resp, err := cliCtx.Service.Rebalance(cmd.Context(), req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, resp)
		},
	}
}

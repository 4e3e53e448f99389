package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRebuildCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Regenerate positions, custodians and carried losses",
		Long: `Rebuild clears every derived table and replays the full transaction log.
Running it twice over an unchanged log yields identical fingerprints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.Service.RebuildAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s\n", summary.RunID)
			fmt.Fprintf(out, "  transactions:   %d\n", summary.Transactions)
			fmt.Fprintf(out, "  positions:      %d (%d open)\n", summary.Positions, summary.OpenPositions)
			fmt.Fprintf(out, "  sales:          %d\n", summary.Sales)
			fmt.Fprintf(out, "  tax results:    %d\n", summary.TaxResults)
			return nil
		},
	}
}

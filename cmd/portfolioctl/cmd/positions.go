package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/spf13/cobra"
)

func newPositionsCmd(opts *rootOptions) *cobra.Command {
	var openOnly bool
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List stored positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			positions, err := a.Service.ListPositions(cmd.Context(), openOnly)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TICKER\tINSTITUTION\tQUANTITY\tAVG PRICE\tTOTAL COST")
			for _, p := range positions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					p.Ticker, p.Institution,
					money.QuantityString(p.Quantity),
					money.Format(p.AvgPrice, string(p.Currency)),
					money.Format(p.TotalCost, string(p.Currency)))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&openOnly, "open", false, "only positions with quantity > 0")
	return cmd
}

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/spf13/cobra"
)

func newTaxCmd(opts *rootOptions) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "tax",
		Short: "Print the capital-gains tax report",
		Long: `Tax replays the transaction log and prints one line per month and
asset group. Use --month YYYY-MM to restrict the output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Service.TaxReport(cmd.Context(), month)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MONTH\tGROUP\tTRADE\tGAIN\tTAXABLE\tTAX DUE\tNET\tEXEMPT")
			for _, r := range report.Results {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
					r.Month, r.AssetClass.Label(), r.TradeType,
					money.MonetaryString(r.GrossGain),
					money.MonetaryString(r.TaxableGain),
					money.MonetaryString(r.TaxDue),
					money.MonetaryString(r.NetPayable),
					r.Exempt)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total payable: %s\n", money.Format(report.TotalNetPayable, string(models.BRL)))
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month to report (YYYY-MM); empty reports every month")
	return cmd
}

package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/spf13/cobra"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Preview or import a B3 trade export",
		Long: `Import parses a ;-separated B3 trade export and prints the rows it
understood. Nothing is saved unless --confirm is given.

Example:
  portfolioctl import negociacao.csv --confirm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			preview, err := a.Service.PreviewB3(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tTYPE\tTICKER\tQUANTITY\tPRICE\tINSTITUTION")
			for _, tx := range preview.Transactions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					tx.DateKey(), tx.Type, tx.Ticker,
					money.QuantityString(tx.Quantity),
					money.MonetaryString(tx.Price),
					tx.Institution)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			for _, s := range preview.Skipped {
				fmt.Fprintf(out, "skipped line %d: %s\n", s.Line, s.Reason)
			}

			if !confirm {
				fmt.Fprintf(out, "%d rows parsed; rerun with --confirm to save\n", len(preview.Transactions))
				return nil
			}
			n, err := a.Service.ImportTransactions(cmd.Context(), preview.Transactions)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			fmt.Fprintf(out, "imported %d transactions\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "save the parsed rows")
	return cmd
}

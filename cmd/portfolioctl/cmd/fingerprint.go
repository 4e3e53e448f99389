package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFingerprintCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print each stored position's fingerprint",
		Long: `Fingerprint prints TICKER@INSTITUTION and the SHA-256 of every stored
position. Diff the output of two runs to confirm a rebuild changed nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			positions, err := a.Service.ListPositions(cmd.Context(), false)
			if err != nil {
				return err
			}
			for _, p := range positions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", p.Key(), p.Fingerprint)
			}
			return nil
		},
	}
}

package cmd

import (
	"context"

	"github.com/marcusaleks/Portfolio-Manager/internal/app"
	"github.com/marcusaleks/Portfolio-Manager/internal/config"
	"github.com/marcusaleks/Portfolio-Manager/internal/logger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	databaseURL string
	sqlitePath  string
}

// NewRootCmd builds the command tree. Storage flags override the
// DATABASE_URL and SQLITE_PATH environment variables.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "portfolioctl",
		Short: "Maintain the portfolio database from the command line",
		Long: `portfolioctl works directly on the portfolio store.

It can:
  - rebuild positions, custodians and carried losses from the transaction log
  - list positions and their fingerprints
  - print the monthly capital-gains tax report
  - preview and import B3 trade exports`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL DSN (overrides DATABASE_URL)")
	root.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite", "", "SQLite database file (overrides SQLITE_PATH)")

	root.AddCommand(
		newRebuildCmd(opts),
		newPositionsCmd(opts),
		newTaxCmd(opts),
		newImportCmd(opts),
		newFingerprintCmd(opts),
	)
	return root
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) open(cmd *cobra.Command) (*app.App, error) {
	cfg := config.Load()
	if o.databaseURL != "" {
		cfg.DBURL = o.databaseURL
	}
	if o.sqlitePath != "" {
		cfg.DBURL = ""
		cfg.SQLitePath = o.sqlitePath
	}
	log := logger.NewWithOutput(cfg.Environment, cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return app.New(ctx, cfg, log)
}

// Package cli implements sprintctl, the operator tool for schema migrations,
// demo data and account administration.
package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/geocoder89/sprintsync/internal/config"
	"github.com/geocoder89/sprintsync/internal/db"
	"github.com/geocoder89/sprintsync/internal/observability"
)

var Version = "dev"

const commandTimeout = 5 * time.Minute

type options struct {
	dbURL   string
	verbose bool
	log     *slog.Logger
}

func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "sprintctl",
		Short:         "SprintSync operator tool",
		Long:          `sprintctl manages the SprintSync database: schema migrations, demo data and admin accounts.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			if opts.dbURL == "" {
				opts.dbURL = cfg.DBURL
			}
			env := cfg.Env
			if opts.verbose {
				env = "dev"
			}
			opts.log = observability.NewLogger(env)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.dbURL, "url", "", "database connection URL (default: DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(newMigrateCommand(opts))
	rootCmd.AddCommand(newSeedCommand(opts))
	rootCmd.AddCommand(newPromoteCommand(opts))
	rootCmd.AddCommand(newCheckDBCommand(opts))

	return rootCmd
}

// withPool runs fn against a fresh pool bounded by commandTimeout.
func (o *options) withPool(cmd *cobra.Command, fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()

	pool, err := db.NewPool(ctx, o.dbURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, pool)
}

func (o *options) logger() *slog.Logger {
	if o.log == nil {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return o.log
}

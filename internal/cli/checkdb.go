package cli

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/geocoder89/sprintsync/internal/db"
)

func newCheckDBCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Verify the database is reachable and report pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withPool(cmd, func(ctx context.Context, pool *pgxpool.Pool) error {
				var version string
				if err := pool.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
					return err
				}
				cmd.Println("Connected:", version)

				m, err := db.NewMigrator(pool)
				if err != nil {
					return err
				}
				st, err := m.Status(ctx)
				if err != nil {
					return err
				}

				pending := 0
				for _, s := range st {
					if !s.Applied {
						pending++
					}
				}
				cmd.Printf("Migrations: %d total, %d pending\n", len(st), pending)
				return nil
			})
		},
	}
}

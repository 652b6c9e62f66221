package cli

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/geocoder89/sprintsync/internal/db"
	"github.com/geocoder89/sprintsync/internal/repo/postgres"
	"github.com/geocoder89/sprintsync/internal/seed"
)

func newSeedCommand(opts *options) *cobra.Command {
	var force bool

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users, projects and tasks",
		Long: `Load the demo data set. By default nothing happens when users already
exist; --force wipes every table first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withPool(cmd, func(ctx context.Context, pool *pgxpool.Pool) error {
				reset := func(ctx context.Context) error { return db.ResetData(ctx, pool) }

				s := seed.New(
					postgres.NewUsersRepo(pool, nil),
					postgres.NewProjectsRepo(pool, nil),
					postgres.NewTasksRepo(pool, nil),
					reset,
					opts.logger(),
				)

				res, err := s.Run(ctx, force)
				if err != nil {
					return err
				}
				if !res.Seeded {
					cmd.Println("Database already has data, skipping (use --force to reseed)")
					return nil
				}
				cmd.Printf("Seeded %d users, %d projects, %d memberships, %d tasks\n", res.Users, res.Projects, res.Members, res.Tasks)
				return nil
			})
		},
	}

	seedCmd.Flags().BoolVar(&force, "force", false, "wipe existing data before seeding")

	return seedCmd
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/geocoder89/sprintsync/internal/db"
)

func newMigrateCommand(opts *options) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withPool(cmd, func(ctx context.Context, pool *pgxpool.Pool) error {
				m, err := db.NewMigrator(pool)
				if err != nil {
					return err
				}
				applied, err := m.Up(ctx)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					cmd.Println("Schema is up to date")
					return nil
				}
				for _, v := range applied {
					cmd.Printf("Applied %04d\n", v)
				}
				return nil
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest applied migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withPool(cmd, func(ctx context.Context, pool *pgxpool.Pool) error {
				m, err := db.NewMigrator(pool)
				if err != nil {
					return err
				}
				v, err := m.Down(ctx)
				if errors.Is(err, db.ErrNothingToRollback) {
					cmd.Println("Nothing to roll back")
					return nil
				}
				if err != nil {
					return err
				}
				cmd.Printf("Rolled back %04d\n", v)
				return nil
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withPool(cmd, func(ctx context.Context, pool *pgxpool.Pool) error {
				m, err := db.NewMigrator(pool)
				if err != nil {
					return err
				}
				st, err := m.Status(ctx)
				if err != nil {
					return err
				}
				return writeStatus(cmd.OutOrStdout(), st)
			})
		},
	})

	return migrateCmd
}

func writeStatus(w io.Writer, st []db.MigrationStatus) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATE")
	for _, s := range st {
		state := "pending"
		switch {
		case s.Dirty:
			state = "dirty"
		case s.Applied:
			state = "applied"
		}
		fmt.Fprintf(tw, "%04d\t%s\t%s\n", s.Version, s.Name, state)
	}
	return tw.Flush()
}

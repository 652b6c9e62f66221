package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/geocoder89/sprintsync/internal/domain/user"
	"github.com/geocoder89/sprintsync/internal/repo/postgres"
)

// AdminSetter is the part of the user store promote needs.
type AdminSetter interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Update(ctx context.Context, id string, upd user.Update) (user.User, error)
}

// SetAdmin grants or revokes the global admin flag on the account behind email.
func SetAdmin(ctx context.Context, users AdminSetter, email string, admin bool) (user.User, error) {
	u, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, fmt.Errorf("no user with email %s: %w", email, err)
		}
		return user.User{}, err
	}
	if u.IsAdmin == admin {
		return u, nil
	}
	return users.Update(ctx, u.ID, user.Update{IsAdmin: &admin})
}

func newPromoteCommand(opts *options) *cobra.Command {
	var revoke bool

	promoteCmd := &cobra.Command{
		Use:   "promote <email>",
		Short: "Grant (or with --revoke, remove) global admin rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withPool(cmd, func(ctx context.Context, pool *pgxpool.Pool) error {
				u, err := SetAdmin(ctx, postgres.NewUsersRepo(pool, nil), args[0], !revoke)
				if err != nil {
					return err
				}
				cmd.Printf("%s is_admin=%t\n", u.Email, u.IsAdmin)
				return nil
			})
		},
	}

	promoteCmd.Flags().BoolVar(&revoke, "revoke", false, "remove admin rights instead")

	return promoteCmd
}

package db

import (
	"context"

	"github.com/geocoder89/sprintsync/internal/domain/user"
	"github.com/geocoder89/sprintsync/internal/security"
)

// EnsureAdminUser makes sure the bootstrap account exists and holds the
// global admin flag. An existing account keeps its password.
func EnsureAdminUser(ctx context.Context, conn Conn, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	hash, err := security.HashPassword(password)

	if err != nil {
		return err
	}

	u := user.New(email, hash, true)

	_, err = conn.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $5)
		ON CONFLICT (email) DO UPDATE SET is_admin = TRUE, updated_at = EXCLUDED.updated_at
		WHERE users.is_admin = FALSE`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)

	return err
}

package postgres

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geocoder89/sprintsync/internal/domain/user"
	"github.com/geocoder89/sprintsync/internal/observability"
)

const userColumns = "id, email, password_hash, is_admin, description, created_at, updated_at"

type UsersRepo struct {
	base
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{base{pool: pool, prom: prom}}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.Description, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, is_admin, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.Email, u.PasswordHash, u.IsAdmin, u.Description, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) getBy(ctx context.Context, op string, where squirrel.Sqlizer) (user.User, error) {
	sql, args, err := psql.Select(userColumns).From("users").Where(where).ToSql()
	if err != nil {
		return user.User{}, err
	}

	var u user.User
	err = r.observe(op, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, sql, args...))
		return err
	})

	if err != nil {
		if isNoRows(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getBy(ctx, "users.get_by_id", squirrel.Eq{"id": id})
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getBy(ctx, "users.get_by_email", squirrel.Eq{"email": user.NormalizeEmail(email)})
}

func (r *UsersRepo) List(ctx context.Context, skip, limit int) ([]user.User, int, error) {
	sql, args, err := psql.Select(userColumns).From("users").
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(limit)).Offset(uint64(skip)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	out := make([]user.User, 0, limit)
	err = r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = r.observe("users.count", func() error {
		var err error
		total, err = r.count(ctx, psql.Select("COUNT(*)").From("users"))
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, upd user.Update) (user.User, error) {
	q := psql.Update("users").
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + userColumns)

	if upd.Email != nil {
		q = q.Set("email", user.NormalizeEmail(*upd.Email))
	}
	if upd.IsAdmin != nil {
		q = q.Set("is_admin", *upd.IsAdmin)
	}
	if upd.Description != nil {
		q = q.Set("description", *upd.Description)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return user.User{}, err
	}

	var u user.User
	err = r.observe("users.update", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, sql, args...))
		return err
	})

	switch {
	case err == nil:
		return u, nil
	case isNoRows(err):
		return user.User{}, user.ErrNotFound
	case isUniqueViolation(err):
		return user.User{}, user.ErrEmailTaken
	default:
		return user.User{}, err
	}
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, "users.update_password", psql.Update("users").
		Set("password_hash", passwordHash).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}), user.ErrNotFound)
}

// Delete removes the user. Owned projects, created tasks and memberships go
// with it through foreign keys; tasks assigned to the user become unassigned.
func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, "users.delete", psql.Delete("users").Where(squirrel.Eq{"id": id}), user.ErrNotFound)
}

func (r *UsersRepo) Stats(ctx context.Context) (user.Stats, error) {
	var s user.Stats
	err := r.observe("users.stats", func() error {
		return r.queryRow(ctx,
			psql.Select("COUNT(*)", "COUNT(*) FILTER (WHERE is_admin)").From("users"),
			&s.TotalUsers, &s.AdminUsers,
		)
	})
	if err != nil {
		return user.Stats{}, err
	}
	s.RegularUsers = s.TotalUsers - s.AdminUsers
	return s, nil
}

package postgres

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geocoder89/sprintsync/internal/observability"
)

// psql builds $n-placeholder SQL for pgx.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// base carries the pool and metrics shared by every repo.
type base struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func (b base) observe(op string, fn func() error) error {
	if b.prom != nil {
		return b.prom.ObserveDB(op, fn)
	}
	return fn()
}

// queryRow renders a squirrel builder and scans a single row.
func (b base) queryRow(ctx context.Context, q squirrel.Sqlizer, dest ...any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return err
	}
	return b.pool.QueryRow(ctx, sql, args...).Scan(dest...)
}

func (b base) exec(ctx context.Context, q squirrel.Sqlizer) (pgconn.CommandTag, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return b.pool.Exec(ctx, sql, args...)
}

// execOne runs a statement expected to touch one row and reports notFound
// when it touched none.
func (b base) execOne(ctx context.Context, op string, q squirrel.Sqlizer, notFound error) error {
	var tag pgconn.CommandTag
	err := b.observe(op, func() error {
		var err error
		tag, err = b.exec(ctx, q)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

func (b base) count(ctx context.Context, q squirrel.SelectBuilder) (int, error) {
	var n int
	err := b.queryRow(ctx, q, &n)
	return n, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

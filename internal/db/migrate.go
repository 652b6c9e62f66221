package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsDir = "migrations"

var ErrNothingToRollback = errors.New("no applied migrations to roll back")

// Migration is one versioned schema step with its reverse.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

type MigrationStatus struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
	Dirty   bool   `json:"dirty,omitempty"`
}

// Conn is the subset of pgx used by the data helpers; *pgxpool.Pool
// satisfies it.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Migrator applies the embedded migrations with golang-migrate over the
// application's pgx pool. History lives in schema_migrations.
type Migrator struct {
	pool       *pgxpool.Pool
	migrations []Migration
}

func NewMigrator(pool *pgxpool.Pool) (*Migrator, error) {
	ms, err := LoadMigrations(migrationFiles)
	if err != nil {
		return nil, err
	}
	return &Migrator{pool: pool, migrations: ms}, nil
}

// LoadMigrations reads NNNN_name.up.sql / NNNN_name.down.sql pairs from the
// migrations directory of fsys through golang-migrate's iofs source, ordered
// by version. Files that do not follow the naming scheme are ignored.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	src, err := iofs.New(fsys, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	defer src.Close()

	v, err := src.First()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.New("read migrations: no migration files found")
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var out []Migration
	for {
		m, err := readMigration(src, v)
		if err != nil {
			return nil, err
		}
		out = append(out, m)

		v, err = src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read migrations: %w", err)
		}
	}
}

func readMigration(src source.Driver, version uint) (Migration, error) {
	up, name, err := src.ReadUp(version)
	if err != nil {
		return Migration{}, fmt.Errorf("migration %04d: missing up script: %w", version, err)
	}
	upSQL, err := readAll(up)
	if err != nil {
		return Migration{}, fmt.Errorf("migration %04d_%s: %w", version, name, err)
	}

	m := Migration{Version: int(version), Name: name, Up: upSQL}

	down, _, err := src.ReadDown(version)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Migration{}, fmt.Errorf("migration %04d_%s: %w", version, name, err)
	default:
		if m.Down, err = readAll(down); err != nil {
			return Migration{}, fmt.Errorf("migration %04d_%s: %w", version, name, err)
		}
	}

	return m, nil
}

func readAll(rc io.ReadCloser) (string, error) {
	defer rc.Close()
	b, err := io.ReadAll(rc)
	return string(b), err
}

// open builds a migrate instance bound to the pool. Close releases the
// database/sql wrapper only; the pool stays open.
func (m *Migrator) open(ctx context.Context) (*migrate.Migrate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := iofs.New(migrationFiles, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	driver, err := pgxmigrate.WithInstance(stdlib.OpenDBFromPool(m.pool), &pgxmigrate.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	return migrate.NewWithInstance("iofs", src, "pgx5", driver)
}

// currentVersion reports the applied version, 0 when nothing is applied.
func currentVersion(mg *migrate.Migrate) (int, bool, error) {
	v, dirty, err := mg.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int(v), dirty, nil
}

// Up applies every pending migration in version order and returns the
// versions applied.
func (m *Migrator) Up(ctx context.Context) ([]int, error) {
	mg, err := m.open(ctx)
	if err != nil {
		return nil, err
	}
	defer mg.Close()

	before, dirty, err := currentVersion(mg)
	if err != nil {
		return nil, err
	}
	if dirty {
		return nil, fmt.Errorf("schema is dirty at version %04d, fix it manually", before)
	}

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	after, _, err := currentVersion(mg)
	if err != nil {
		return nil, err
	}

	var ran []int
	for _, mig := range m.migrations {
		if mig.Version > before && mig.Version <= after {
			ran = append(ran, mig.Version)
		}
	}
	return ran, nil
}

// Down rolls back the most recently applied migration and returns its
// version.
func (m *Migrator) Down(ctx context.Context) (int, error) {
	mg, err := m.open(ctx)
	if err != nil {
		return 0, err
	}
	defer mg.Close()

	v, _, err := currentVersion(mg)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, ErrNothingToRollback
	}

	if err := mg.Steps(-1); err != nil {
		return 0, fmt.Errorf("rollback %04d: %w", v, err)
	}
	return v, nil
}

func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	mg, err := m.open(ctx)
	if err != nil {
		return nil, err
	}
	defer mg.Close()

	current, dirty, err := currentVersion(mg)
	if err != nil {
		return nil, err
	}

	return statusOf(m.migrations, current, dirty), nil
}

func statusOf(ms []Migration, current int, dirty bool) []MigrationStatus {
	out := make([]MigrationStatus, 0, len(ms))
	for _, mig := range ms {
		out = append(out, MigrationStatus{
			Version: mig.Version,
			Name:    mig.Name,
			Applied: mig.Version <= current,
			Dirty:   dirty && mig.Version == current,
		})
	}
	return out
}

package postgres

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geocoder89/sprintsync/internal/domain/project"
	"github.com/geocoder89/sprintsync/internal/observability"
)

const (
	projectColumns = "id, name, description, is_active, owner_id, created_at, updated_at"
	memberColumns  = "id, project_id, user_id, role, created_at, updated_at"
)

type ProjectsRepo struct {
	base
}

func NewProjectsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ProjectsRepo {
	return &ProjectsRepo{base{pool: pool, prom: prom}}
}

func scanProject(row pgx.Row) (project.Project, error) {
	var p project.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.IsActive, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanMember(row pgx.Row) (project.Member, error) {
	var m project.Member
	err := row.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Create inserts the project and its OWNER membership in one transaction.
func (r *ProjectsRepo) Create(ctx context.Context, p project.Project) (project.Project, error) {
	owner := project.NewMember(p.ID, p.OwnerID, project.RoleOwner)

	err := r.observe("projects.create_tx", func() error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx,
				`INSERT INTO projects (id, name, description, is_active, owner_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				p.ID, p.Name, p.Description, p.IsActive, p.OwnerID, p.CreatedAt, p.UpdatedAt,
			)
			if err != nil {
				return err
			}

			_, err = tx.Exec(ctx,
				`INSERT INTO project_members (id, project_id, user_id, role, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				owner.ID, owner.ProjectID, owner.UserID, string(owner.Role), owner.CreatedAt, owner.UpdatedAt,
			)
			return err
		})
	})
	if err != nil {
		return project.Project{}, err
	}

	return p, nil
}

func (r *ProjectsRepo) GetByID(ctx context.Context, id string) (project.Project, error) {
	sql, args, err := psql.Select(projectColumns).From("projects").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return project.Project{}, err
	}

	var p project.Project
	err = r.observe("projects.get_by_id", func() error {
		var err error
		p, err = scanProject(r.pool.QueryRow(ctx, sql, args...))
		return err
	})
	if err != nil {
		if isNoRows(err) {
			return project.Project{}, project.ErrNotFound
		}
		return project.Project{}, err
	}
	return p, nil
}

func projectScope(q squirrel.SelectBuilder, f project.ListFilter) squirrel.SelectBuilder {
	if f.MemberID == nil {
		return q
	}
	return q.Where(squirrel.Or{
		squirrel.Eq{"owner_id": *f.MemberID},
		squirrel.Expr("id IN (SELECT project_id FROM project_members WHERE user_id = ?)", *f.MemberID),
	})
}

func (r *ProjectsRepo) List(ctx context.Context, f project.ListFilter) ([]project.Project, int, error) {
	sql, args, err := projectScope(psql.Select(projectColumns).From("projects"), f).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(f.Limit)).Offset(uint64(f.Skip)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	out := make([]project.Project, 0, f.Limit)
	err = r.observe("projects.list", func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProject(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = r.observe("projects.count", func() error {
		var err error
		total, err = r.count(ctx, projectScope(psql.Select("COUNT(*)").From("projects"), f))
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

func (r *ProjectsRepo) Update(ctx context.Context, id string, req project.UpdateRequest) (project.Project, error) {
	q := psql.Update("projects").
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + projectColumns)

	if req.Name != nil {
		q = q.Set("name", *req.Name)
	}
	if req.Description != nil {
		q = q.Set("description", *req.Description)
	}
	if req.IsActive != nil {
		q = q.Set("is_active", *req.IsActive)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return project.Project{}, err
	}

	var p project.Project
	err = r.observe("projects.update", func() error {
		var err error
		p, err = scanProject(r.pool.QueryRow(ctx, sql, args...))
		return err
	})
	if err != nil {
		if isNoRows(err) {
			return project.Project{}, project.ErrNotFound
		}
		return project.Project{}, err
	}
	return p, nil
}

// Delete removes the project; memberships and tasks cascade.
func (r *ProjectsRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, "projects.delete", psql.Delete("projects").Where(squirrel.Eq{"id": id}), project.ErrNotFound)
}

func (r *ProjectsRepo) GetMember(ctx context.Context, projectID, userID string) (project.Member, error) {
	sql, args, err := psql.Select(memberColumns).From("project_members").
		Where(squirrel.Eq{"project_id": projectID, "user_id": userID}).
		ToSql()
	if err != nil {
		return project.Member{}, err
	}

	var m project.Member
	err = r.observe("project_members.get", func() error {
		var err error
		m, err = scanMember(r.pool.QueryRow(ctx, sql, args...))
		return err
	})
	if err != nil {
		if isNoRows(err) {
			return project.Member{}, project.ErrMemberNotFound
		}
		return project.Member{}, err
	}
	return m, nil
}

func (r *ProjectsRepo) ListMembers(ctx context.Context, projectID string) ([]project.Member, error) {
	sql, args, err := psql.Select(memberColumns).From("project_members").
		Where(squirrel.Eq{"project_id": projectID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	out := []project.Member{}
	err = r.observe("project_members.list", func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			m, err := scanMember(rows)
			if err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProjectsRepo) AddMember(ctx context.Context, m project.Member) (project.Member, error) {
	err := r.observe("project_members.add", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO project_members (id, project_id, user_id, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID, m.ProjectID, m.UserID, string(m.Role), m.CreatedAt, m.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return project.Member{}, project.ErrAlreadyMember
		}
		return project.Member{}, err
	}
	return m, nil
}

func (r *ProjectsRepo) UpdateMemberRole(ctx context.Context, projectID, userID string, role project.Role) (project.Member, error) {
	sql, args, err := psql.Update("project_members").
		Set("role", string(role)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"project_id": projectID, "user_id": userID}).
		Suffix("RETURNING " + memberColumns).
		ToSql()
	if err != nil {
		return project.Member{}, err
	}

	var m project.Member
	err = r.observe("project_members.update_role", func() error {
		var err error
		m, err = scanMember(r.pool.QueryRow(ctx, sql, args...))
		return err
	})
	if err != nil {
		if isNoRows(err) {
			return project.Member{}, project.ErrMemberNotFound
		}
		return project.Member{}, err
	}
	return m, nil
}

func (r *ProjectsRepo) RemoveMember(ctx context.Context, projectID, userID string) error {
	return r.execOne(ctx, "project_members.remove",
		psql.Delete("project_members").Where(squirrel.Eq{"project_id": projectID, "user_id": userID}),
		project.ErrMemberNotFound,
	)
}

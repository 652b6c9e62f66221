package postgres

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geocoder89/sprintsync/internal/domain/task"
	"github.com/geocoder89/sprintsync/internal/observability"
)

const taskColumns = "id, title, description, status, total_minutes, user_id, project_id, owner_id, created_at, updated_at"

type TasksRepo struct {
	base
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{base{pool: pool, prom: prom}}
}

func scanTask(row pgx.Row) (task.Task, error) {
	var t task.Task
	var status string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.TotalMinutes, &t.UserID, &t.ProjectID, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	t.Status = task.Status(status)
	return t, err
}

// taskConditions turns a filter into a WHERE clause. Visibility covers the
// creator, the assignee and every member (or owner) of the task's project.
func taskConditions(f task.ListFilter) squirrel.And {
	conds := squirrel.And{}

	if f.VisibleTo != nil {
		uid := *f.VisibleTo
		conds = append(conds, squirrel.Or{
			squirrel.Eq{"user_id": uid},
			squirrel.Eq{"owner_id": uid},
			squirrel.Expr(
				"project_id IN (SELECT project_id FROM project_members WHERE user_id = ? UNION SELECT id FROM projects WHERE owner_id = ?)",
				uid, uid,
			),
		})
	}
	if f.Status != nil {
		conds = append(conds, squirrel.Eq{"status": string(*f.Status)})
	}
	if f.ProjectID != nil {
		conds = append(conds, squirrel.Eq{"project_id": *f.ProjectID})
	}
	if f.OwnerID != nil {
		conds = append(conds, squirrel.Eq{"owner_id": *f.OwnerID})
	}

	return conds
}

func whereTasks(q squirrel.SelectBuilder, f task.ListFilter) squirrel.SelectBuilder {
	if conds := taskConditions(f); len(conds) > 0 {
		return q.Where(conds)
	}
	return q
}

// listQuery builds the page query. The sort column comes from the closed
// allow-list in the task package, never from user input directly.
func listQuery(f task.ListFilter) squirrel.SelectBuilder {
	dir := f.Sort.Direction()

	return whereTasks(psql.Select(taskColumns).From("tasks"), f).
		OrderBy(f.Sort.Field.Column()+" "+dir, "id "+dir).
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Skip))
}

func (r *TasksRepo) Create(ctx context.Context, t task.Task) (task.Task, error) {
	err := r.observe("tasks.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO tasks (id, title, description, status, total_minutes, user_id, project_id, owner_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			t.ID, t.Title, t.Description, string(t.Status), t.TotalMinutes, t.UserID, t.ProjectID, t.OwnerID, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, id string) (task.Task, error) {
	sql, args, err := psql.Select(taskColumns).From("tasks").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return task.Task{}, err
	}
	return r.one(ctx, "tasks.get_by_id", sql, args)
}

func (r *TasksRepo) one(ctx context.Context, op, sql string, args []any) (task.Task, error) {
	var t task.Task
	err := r.observe(op, func() error {
		var err error
		t, err = scanTask(r.pool.QueryRow(ctx, sql, args...))
		return err
	})
	if err != nil {
		if isNoRows(err) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}
	return t, nil
}

func (r *TasksRepo) List(ctx context.Context, f task.ListFilter) ([]task.Task, int, error) {
	sql, args, err := listQuery(f).ToSql()
	if err != nil {
		return nil, 0, err
	}

	out := make([]task.Task, 0, f.Limit)
	err = r.observe("tasks.list", func() error {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = r.observe("tasks.count", func() error {
		var err error
		total, err = r.count(ctx, whereTasks(psql.Select("COUNT(*)").From("tasks"), f))
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

func (r *TasksRepo) Update(ctx context.Context, id string, req task.UpdateRequest) (task.Task, error) {
	if req.Empty() {
		return r.GetByID(ctx, id)
	}

	q := r.updateQuery(id)
	if req.Title != nil {
		q = q.Set("title", *req.Title)
	}
	if req.Description != nil {
		q = q.Set("description", *req.Description)
	}
	if req.Status != nil {
		q = q.Set("status", string(*req.Status))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return task.Task{}, err
	}
	return r.one(ctx, "tasks.update", sql, args)
}

// AddMinutes increments total_minutes in place so concurrent additions are
// never lost.
func (r *TasksRepo) AddMinutes(ctx context.Context, id string, minutes int) (task.Task, error) {
	sql, args, err := r.updateQuery(id).
		Set("total_minutes", squirrel.Expr("total_minutes + ?", minutes)).
		ToSql()
	if err != nil {
		return task.Task{}, err
	}
	return r.one(ctx, "tasks.add_minutes", sql, args)
}

// SetOwner assigns the task, or unassigns it when ownerID is nil.
func (r *TasksRepo) SetOwner(ctx context.Context, id string, ownerID *string) (task.Task, error) {
	sql, args, err := r.updateQuery(id).Set("owner_id", ownerID).ToSql()
	if err != nil {
		return task.Task{}, err
	}
	return r.one(ctx, "tasks.set_owner", sql, args)
}

func (r *TasksRepo) updateQuery(id string) squirrel.UpdateBuilder {
	return psql.Update("tasks").
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + taskColumns)
}

func (r *TasksRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, "tasks.delete", psql.Delete("tasks").Where(squirrel.Eq{"id": id}), task.ErrNotFound)
}

func statsQuery(f task.ListFilter) squirrel.SelectBuilder {
	q := psql.Select(
		"COUNT(*) FILTER (WHERE status = 'todo')",
		"COUNT(*) FILTER (WHERE status = 'in_progress')",
		"COUNT(*) FILTER (WHERE status = 'done')",
		"COALESCE(SUM(total_minutes), 0)",
	).From("tasks")
	return whereTasks(q, f)
}

// Stats summarises every task matching the filter; paging and sort are ignored.
func (r *TasksRepo) Stats(ctx context.Context, f task.ListFilter) (task.Stats, error) {
	var todo, inProgress, done, minutes int
	err := r.observe("tasks.stats", func() error {
		return r.queryRow(ctx, statsQuery(f), &todo, &inProgress, &done, &minutes)
	})
	if err != nil {
		return task.Stats{}, err
	}
	return task.NewStats(todo, inProgress, done, minutes), nil
}

package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/geocoder89/sprintsync/internal/domain/task"
)

type TasksRepo struct {
	s *Store
}

func (r *TasksRepo) Create(_ context.Context, t task.Task) (task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.tasks[t.ID] = t
	return t, nil
}

func (r *TasksRepo) GetByID(_ context.Context, id string) (task.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

func (r *TasksRepo) matchLocked(t task.Task, f task.ListFilter) bool {
	if f.VisibleTo != nil {
		uid := *f.VisibleTo
		visible := t.IsCreator(uid) || t.IsAssignee(uid) ||
			(t.InProject() && r.s.isMemberLocked(*t.ProjectID, uid))
		if !visible {
			return false
		}
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.ProjectID != nil && (t.ProjectID == nil || *t.ProjectID != *f.ProjectID) {
		return false
	}
	if f.OwnerID != nil && !t.IsAssignee(*f.OwnerID) {
		return false
	}
	return true
}

func (r *TasksRepo) filterLocked(f task.ListFilter) []task.Task {
	var out []task.Task
	for _, t := range r.s.tasks {
		if r.matchLocked(t, f) {
			out = append(out, t)
		}
	}
	return out
}

// compareBy compares on the sort column only; ties are broken by id in sortTasks.
var compareBy = map[task.SortField]func(a, b task.Task) int{
	task.SortCreatedAt:    func(a, b task.Task) int { return a.CreatedAt.Compare(b.CreatedAt) },
	task.SortUpdatedAt:    func(a, b task.Task) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	task.SortTitle:        func(a, b task.Task) int { return strings.Compare(a.Title, b.Title) },
	task.SortStatus:       func(a, b task.Task) int { return strings.Compare(string(a.Status), string(b.Status)) },
	task.SortTotalMinutes: func(a, b task.Task) int { return a.TotalMinutes - b.TotalMinutes },
}

func sortTasks(items []task.Task, s task.Sort) {
	cmp, ok := compareBy[s.Field]
	if !ok {
		cmp, s = compareBy[task.SortCreatedAt], task.DefaultSort
	}

	sort.Slice(items, func(i, j int) bool {
		c := cmp(items[i], items[j])
		if c == 0 {
			c = strings.Compare(items[i].ID, items[j].ID)
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
}

func (r *TasksRepo) List(_ context.Context, f task.ListFilter) ([]task.Task, int, error) {
	r.s.mu.RLock()
	all := r.filterLocked(f)
	r.s.mu.RUnlock()

	sortTasks(all, f.Sort)
	return page(all, f.Skip, f.Limit), len(all), nil
}

func (r *TasksRepo) mutate(id string, fn func(t *task.Task)) (task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	fn(&t)
	t.UpdatedAt = time.Now().UTC()
	r.s.tasks[id] = t
	return t, nil
}

func (r *TasksRepo) Update(_ context.Context, id string, req task.UpdateRequest) (task.Task, error) {
	return r.mutate(id, func(t *task.Task) {
		if req.Title != nil {
			t.Title = *req.Title
		}
		if req.Description != nil {
			t.Description = ptr(*req.Description)
		}
		if req.Status != nil {
			t.Status = *req.Status
		}
	})
}

func (r *TasksRepo) AddMinutes(_ context.Context, id string, minutes int) (task.Task, error) {
	return r.mutate(id, func(t *task.Task) {
		t.TotalMinutes += minutes
	})
}

func (r *TasksRepo) SetOwner(_ context.Context, id string, ownerID *string) (task.Task, error) {
	return r.mutate(id, func(t *task.Task) {
		if ownerID == nil {
			t.OwnerID = nil
			return
		}
		t.OwnerID = ptr(*ownerID)
	})
}

func (r *TasksRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[id]; !ok {
		return task.ErrNotFound
	}
	delete(r.s.tasks, id)
	return nil
}

func (r *TasksRepo) Stats(_ context.Context, f task.ListFilter) (task.Stats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var todo, inProgress, done, minutes int
	for _, t := range r.filterLocked(f) {
		switch t.Status {
		case task.StatusTodo:
			todo++
		case task.StatusInProgress:
			inProgress++
		case task.StatusDone:
			done++
		}
		minutes += t.TotalMinutes
	}
	return task.NewStats(todo, inProgress, done, minutes), nil
}

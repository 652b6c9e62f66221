// Package authz answers "may this user do that" for projects and tasks.
//
// Predicates never apply the global-admin override for project or
// view/edit decisions; handlers OR it in themselves. Assign and unassign
// embed it. Every project predicate is false when the project does not exist.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/sprintsync/internal/domain/project"
	"github.com/geocoder89/sprintsync/internal/domain/task"
	"github.com/geocoder89/sprintsync/internal/domain/user"
)

type ProjectReader interface {
	GetByID(ctx context.Context, id string) (project.Project, error)
	GetMember(ctx context.Context, projectID, userID string) (project.Member, error)
}

type Resolver struct {
	projects ProjectReader
}

func NewResolver(projects ProjectReader) *Resolver {
	return &Resolver{projects: projects}
}

// RoleOf returns the user's effective role in the project, or "" when the
// user has none or the project does not exist.
func (r *Resolver) RoleOf(ctx context.Context, projectID, userID string) (project.Role, error) {
	p, err := r.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load project: %w", err)
	}

	if p.OwnerID == userID {
		return project.RoleOwner, nil
	}

	m, err := r.projects.GetMember(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, project.ErrMemberNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load membership: %w", err)
	}

	return m.Role, nil
}

func (r *Resolver) IsProjectOwner(ctx context.Context, projectID, userID string) (bool, error) {
	p, err := r.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load project: %w", err)
	}

	return p.OwnerID == userID, nil
}

// IsProjectAdmin is true for the owner and for members holding the admin role.
func (r *Resolver) IsProjectAdmin(ctx context.Context, projectID, userID string) (bool, error) {
	role, err := r.RoleOf(ctx, projectID, userID)
	if err != nil {
		return false, err
	}
	return role.AtLeast(project.RoleAdmin), nil
}

func (r *Resolver) IsProjectMember(ctx context.Context, projectID, userID string) (bool, error) {
	role, err := r.RoleOf(ctx, projectID, userID)
	if err != nil {
		return false, err
	}
	return role != "", nil
}

func (r *Resolver) CanManageMembers(ctx context.Context, projectID, userID string) (bool, error) {
	return r.IsProjectAdmin(ctx, projectID, userID)
}

func (r *Resolver) CanViewTask(ctx context.Context, t task.Task, u user.User) (bool, error) {
	if t.IsCreator(u.ID) || t.IsAssignee(u.ID) {
		return true, nil
	}
	if t.InProject() {
		return r.IsProjectMember(ctx, *t.ProjectID, u.ID)
	}
	return false, nil
}

func (r *Resolver) CanEditTask(ctx context.Context, t task.Task, u user.User) (bool, error) {
	if t.IsCreator(u.ID) || t.IsAssignee(u.ID) {
		return true, nil
	}
	if t.InProject() {
		return r.IsProjectAdmin(ctx, *t.ProjectID, u.ID)
	}
	return false, nil
}

func (r *Resolver) CanAssignTask(ctx context.Context, t task.Task, u user.User) (bool, error) {
	if u.IsAdmin {
		return true, nil
	}
	if t.InProject() {
		return r.IsProjectAdmin(ctx, *t.ProjectID, u.ID)
	}
	return false, nil
}

func (r *Resolver) CanUnassignTask(ctx context.Context, t task.Task, u user.User) (bool, error) {
	if t.IsAssignee(u.ID) || t.IsCreator(u.ID) || u.IsAdmin {
		return true, nil
	}
	if t.InProject() {
		return r.IsProjectAdmin(ctx, *t.ProjectID, u.ID)
	}
	return false, nil
}

package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/sprintsync/internal/domain/project"
)

type ProjectsRepo struct {
	s *Store
}

func (r *ProjectsRepo) Create(_ context.Context, p project.Project) (project.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.projects[p.ID] = p
	r.s.members[memberKey{p.ID, p.OwnerID}] = project.NewMember(p.ID, p.OwnerID, project.RoleOwner)
	return p, nil
}

func (r *ProjectsRepo) GetByID(_ context.Context, id string) (project.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.projects[id]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	return p, nil
}

func (r *ProjectsRepo) List(_ context.Context, f project.ListFilter) ([]project.Project, int, error) {
	r.s.mu.RLock()
	var all []project.Project
	for _, p := range r.s.projects {
		if f.MemberID != nil && !r.s.isMemberLocked(p.ID, *f.MemberID) {
			continue
		}
		all = append(all, p)
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return page(all, f.Skip, f.Limit), len(all), nil
}

func (r *ProjectsRepo) Update(_ context.Context, id string, req project.UpdateRequest) (project.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.projects[id]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = ptr(*req.Description)
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	p.UpdatedAt = time.Now().UTC()

	r.s.projects[id] = p
	return p, nil
}

func (r *ProjectsRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[id]; !ok {
		return project.ErrNotFound
	}
	r.s.deleteProjectLocked(id)
	return nil
}

func (r *ProjectsRepo) GetMember(_ context.Context, projectID, userID string) (project.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.members[memberKey{projectID, userID}]
	if !ok {
		return project.Member{}, project.ErrMemberNotFound
	}
	return m, nil
}

func (r *ProjectsRepo) ListMembers(_ context.Context, projectID string) ([]project.Member, error) {
	r.s.mu.RLock()
	out := []project.Member{}
	for k, m := range r.s.members {
		if k.projectID == projectID {
			out = append(out, m)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ProjectsRepo) AddMember(_ context.Context, m project.Member) (project.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := memberKey{m.ProjectID, m.UserID}
	if _, ok := r.s.members[k]; ok {
		return project.Member{}, project.ErrAlreadyMember
	}
	r.s.members[k] = m
	return m, nil
}

func (r *ProjectsRepo) UpdateMemberRole(_ context.Context, projectID, userID string, role project.Role) (project.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := memberKey{projectID, userID}
	m, ok := r.s.members[k]
	if !ok {
		return project.Member{}, project.ErrMemberNotFound
	}
	m.Role = role
	m.UpdatedAt = time.Now().UTC()
	r.s.members[k] = m
	return m, nil
}

func (r *ProjectsRepo) RemoveMember(_ context.Context, projectID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := memberKey{projectID, userID}
	if _, ok := r.s.members[k]; !ok {
		return project.ErrMemberNotFound
	}
	delete(r.s.members, k)
	return nil
}

// Package memory holds map-backed stores with the same contracts as the
// Postgres ones, including cascades. All three repos share one Store so that
// deletes can reach across tables under a single lock.
package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/sprintsync/internal/domain/project"
	"github.com/geocoder89/sprintsync/internal/domain/task"
	"github.com/geocoder89/sprintsync/internal/domain/user"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]user.User
	projects map[string]project.Project
	members  map[memberKey]project.Member
	tasks    map[string]task.Task
}

type memberKey struct {
	projectID string
	userID    string
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]user.User),
		projects: make(map[string]project.Project),
		members:  make(map[memberKey]project.Member),
		tasks:    make(map[string]task.Task),
	}
}

func (s *Store) Users() *UsersRepo       { return &UsersRepo{s: s} }
func (s *Store) Projects() *ProjectsRepo { return &ProjectsRepo{s: s} }
func (s *Store) Tasks() *TasksRepo       { return &TasksRepo{s: s} }

// deleteProjectLocked removes a project with its memberships and tasks.
func (s *Store) deleteProjectLocked(id string) {
	delete(s.projects, id)

	for k := range s.members {
		if k.projectID == id {
			delete(s.members, k)
		}
	}
	for tid, t := range s.tasks {
		if t.ProjectID != nil && *t.ProjectID == id {
			delete(s.tasks, tid)
		}
	}
}

func (s *Store) isMemberLocked(projectID, userID string) bool {
	if p, ok := s.projects[projectID]; ok && p.OwnerID == userID {
		return true
	}
	_, ok := s.members[memberKey{projectID, userID}]
	return ok
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return items[skip:end]
}

func ptr[T any](v T) *T { return &v }

// Reset drops every row in every table.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[string]user.User)
	s.projects = make(map[string]project.Project)
	s.members = make(map[memberKey]project.Member)
	s.tasks = make(map[string]task.Task)
	return nil
}

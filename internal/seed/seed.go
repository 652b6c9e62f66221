// Package seed loads the demo data set used for local development and demos.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/geocoder89/sprintsync/internal/domain/project"
	"github.com/geocoder89/sprintsync/internal/domain/task"
	"github.com/geocoder89/sprintsync/internal/domain/user"
	"github.com/geocoder89/sprintsync/internal/security"
)

var ErrResetUnsupported = errors.New("seed: force requires a reset function")

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	Stats(ctx context.Context) (user.Stats, error)
}

type ProjectStore interface {
	Create(ctx context.Context, p project.Project) (project.Project, error)
	AddMember(ctx context.Context, m project.Member) (project.Member, error)
}

type TaskStore interface {
	Create(ctx context.Context, t task.Task) (task.Task, error)
}

type demoUser struct {
	key         string
	email       string
	password    string
	admin       bool
	description string
}

type demoProject struct {
	key         string
	name        string
	description string
	owner       string
	members     map[string]project.Role
}

type demoTask struct {
	title       string
	description string
	status      task.Status
	minutes     int
	creator     string
	owner       string
	project     string
}

var demoUsers = []demoUser{
	{"admin", "admin@example.com", "admin123", true, "Administrator user with full access"},
	{"john", "john@example.com", "demo123", false, "Frontend Developer"},
	{"sarah", "sarah@example.com", "demo123", false, "Backend Developer"},
}

var demoProjects = []demoProject{
	{
		key:         "website",
		name:        "Website Redesign",
		description: "Complete redesign of company website with modern UI/UX",
		owner:       "admin",
		members:     map[string]project.Role{"john": project.RoleAdmin, "sarah": project.RoleMember},
	},
	{
		key:         "mobile",
		name:        "Mobile App Development",
		description: "Cross-platform mobile application for customer engagement",
		owner:       "john",
		members:     map[string]project.Role{"admin": project.RoleMember},
	},
}

var demoTasks = []demoTask{
	{"Design Homepage Mockup", "Create wireframes and mockups for the new homepage design", task.StatusTodo, 0, "john", "admin", "website"},
	{"Implement Authentication", "Set up user authentication with JWT tokens", task.StatusInProgress, 120, "sarah", "admin", "website"},
	{"Database Schema Design", "Design the database schema for the new features", task.StatusDone, 240, "sarah", "sarah", "website"},
	{"API Development", "Develop REST API endpoints for mobile app", task.StatusInProgress, 180, "john", "john", "mobile"},
}

// Result counts what a run inserted.
type Result struct {
	Seeded   bool `json:"seeded"`
	Users    int  `json:"users"`
	Projects int  `json:"projects"`
	Members  int  `json:"members"`
	Tasks    int  `json:"tasks"`
}

type Seeder struct {
	users    UserStore
	projects ProjectStore
	tasks    TaskStore
	reset    func(ctx context.Context) error
	log      *slog.Logger
}

// New builds a seeder. reset wipes existing data for forced runs and may be
// nil when forcing is not needed.
func New(users UserStore, projects ProjectStore, tasks TaskStore, reset func(context.Context) error, log *slog.Logger) *Seeder {
	if log == nil {
		log = slog.Default()
	}
	return &Seeder{users: users, projects: projects, tasks: tasks, reset: reset, log: log}
}

// Run inserts the demo data set when the users table is empty. With force,
// existing data is wiped first.
func (s *Seeder) Run(ctx context.Context, force bool) (Result, error) {
	if force {
		if s.reset == nil {
			return Result{}, ErrResetUnsupported
		}
		s.log.InfoContext(ctx, "seed_reset")
		if err := s.reset(ctx); err != nil {
			return Result{}, fmt.Errorf("reset: %w", err)
		}
	} else {
		st, err := s.users.Stats(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("count users: %w", err)
		}
		if st.TotalUsers > 0 {
			s.log.InfoContext(ctx, "seed_skipped", "reason", "database already has users")
			return Result{}, nil
		}
	}

	res, err := s.insert(ctx)
	if err != nil {
		return Result{}, err
	}

	s.log.InfoContext(ctx, "seed_complete", "users", res.Users, "projects", res.Projects, "tasks", res.Tasks)
	return res, nil
}

func (s *Seeder) insert(ctx context.Context) (Result, error) {
	res := Result{Seeded: true}
	userIDs := make(map[string]string, len(demoUsers))

	for _, du := range demoUsers {
		hash, err := security.HashPassword(du.password)
		if err != nil {
			return Result{}, err
		}

		u := user.New(du.email, hash, du.admin)
		desc := du.description
		u.Description = &desc

		created, err := s.users.Create(ctx, u)
		if err != nil {
			return Result{}, fmt.Errorf("create user %s: %w", du.email, err)
		}
		userIDs[du.key] = created.ID
		res.Users++
	}

	projectIDs := make(map[string]string, len(demoProjects))

	for _, dp := range demoProjects {
		desc := dp.description
		p := project.NewFromCreateRequest(project.CreateRequest{Name: dp.name, Description: &desc}, userIDs[dp.owner])

		created, err := s.projects.Create(ctx, p)
		if err != nil {
			return Result{}, fmt.Errorf("create project %s: %w", dp.name, err)
		}
		projectIDs[dp.key] = created.ID
		res.Projects++
		res.Members++ // owner membership comes with the project

		for key, role := range dp.members {
			if _, err := s.projects.AddMember(ctx, project.NewMember(created.ID, userIDs[key], role)); err != nil {
				return Result{}, fmt.Errorf("add member %s to %s: %w", key, dp.name, err)
			}
			res.Members++
		}
	}

	now := time.Now().UTC()

	for _, dt := range demoTasks {
		desc := dt.description
		projectID := projectIDs[dt.project]
		ownerID := userIDs[dt.owner]

		t := task.Task{
			ID:           uuid.NewString(),
			Title:        dt.title,
			Description:  &desc,
			Status:       dt.status,
			TotalMinutes: dt.minutes,
			UserID:       userIDs[dt.creator],
			ProjectID:    &projectID,
			OwnerID:      &ownerID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if _, err := s.tasks.Create(ctx, t); err != nil {
			return Result{}, fmt.Errorf("create task %q: %w", dt.title, err)
		}
		res.Tasks++
	}

	return res, nil
}

package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/sprintsync/internal/domain/project"
	"github.com/geocoder89/sprintsync/internal/domain/task"
	"github.com/geocoder89/sprintsync/internal/domain/user"
	"github.com/geocoder89/sprintsync/internal/repo/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memory.Store
	users    *memory.UsersRepo
	projects *memory.ProjectsRepo
	tasks    *memory.TasksRepo
}

func newFixture() fixture {
	s := memory.NewStore()
	return fixture{store: s, users: s.Users(), projects: s.Projects(), tasks: s.Tasks()}
}

func (f fixture) user(t *testing.T, email string) user.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), user.New(email, "hash", false))
	require.NoError(t, err)
	return u
}

func (f fixture) project(t *testing.T, owner user.User) project.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), project.NewFromCreateRequest(project.CreateRequest{Name: "Apollo"}, owner.ID))
	require.NoError(t, err)
	return p
}

func (f fixture) task(t *testing.T, creator user.User, projectID *string, title string) task.Task {
	t.Helper()
	tk, err := f.tasks.Create(context.Background(), task.NewFromCreateRequest(task.CreateRequest{Title: title, ProjectID: projectID}, creator.ID))
	require.NoError(t, err)
	return tk
}

func TestUsers_EmailUniqueCaseInsensitive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.user(t, "Alice@Example.com")

	_, err := f.users.Create(ctx, user.New("alice@example.com", "x", false))
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	got, err := f.users.GetByEmail(ctx, "ALICE@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestProjects_CreateAddsOwnerMembership(t *testing.T) {
	f := newFixture()
	owner := f.user(t, "owner@example.com")
	p := f.project(t, owner)

	m, err := f.projects.GetMember(context.Background(), p.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, project.RoleOwner, m.Role)
	assert.True(t, p.IsActive)
}

func TestProjects_DeleteCascades(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")
	p := f.project(t, owner)
	tk := f.task(t, owner, &p.ID, "inside")

	require.NoError(t, f.projects.Delete(ctx, p.ID))

	_, err := f.tasks.GetByID(ctx, tk.ID)
	assert.ErrorIs(t, err, task.ErrNotFound)

	_, err = f.projects.GetMember(ctx, p.ID, owner.ID)
	assert.ErrorIs(t, err, project.ErrMemberNotFound)

	assert.ErrorIs(t, f.projects.Delete(ctx, p.ID), project.ErrNotFound)
}

func TestUsers_DeleteCascadesAndUnassigns(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")

	owned := f.project(t, bob)
	created := f.task(t, bob, nil, "bob's")
	assigned := f.task(t, alice, nil, "alice's")
	_, err := f.tasks.SetOwner(ctx, assigned.ID, &bob.ID)
	require.NoError(t, err)

	require.NoError(t, f.users.Delete(ctx, bob.ID))

	_, err = f.projects.GetByID(ctx, owned.ID)
	assert.ErrorIs(t, err, project.ErrNotFound)

	_, err = f.tasks.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, task.ErrNotFound)

	got, err := f.tasks.GetByID(ctx, assigned.ID)
	require.NoError(t, err)
	assert.Nil(t, got.OwnerID)

	assert.ErrorIs(t, f.users.Delete(ctx, bob.ID), user.ErrNotFound)
}

func TestMembers_Lifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")
	bob := f.user(t, "bob@example.com")
	p := f.project(t, owner)

	_, err := f.projects.AddMember(ctx, project.NewMember(p.ID, bob.ID, project.RoleMember))
	require.NoError(t, err)

	_, err = f.projects.AddMember(ctx, project.NewMember(p.ID, bob.ID, project.RoleAdmin))
	assert.ErrorIs(t, err, project.ErrAlreadyMember)

	m, err := f.projects.UpdateMemberRole(ctx, p.ID, bob.ID, project.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, project.RoleAdmin, m.Role)

	members, err := f.projects.ListMembers(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	require.NoError(t, f.projects.RemoveMember(ctx, p.ID, bob.ID))
	assert.ErrorIs(t, f.projects.RemoveMember(ctx, p.ID, bob.ID), project.ErrMemberNotFound)

	_, err = f.projects.UpdateMemberRole(ctx, p.ID, bob.ID, project.RoleMember)
	assert.ErrorIs(t, err, project.ErrMemberNotFound)
}

func TestTasks_ListVisibilityAndFilters(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")
	member := f.user(t, "member@example.com")
	stranger := f.user(t, "stranger@example.com")

	p := f.project(t, owner)
	_, err := f.projects.AddMember(ctx, project.NewMember(p.ID, member.ID, project.RoleMember))
	require.NoError(t, err)

	f.task(t, owner, &p.ID, "project task")
	f.task(t, owner, nil, "private task")
	f.task(t, stranger, nil, "stranger task")

	visible := func(u user.User) []string {
		items, total, err := f.tasks.List(ctx, task.ListFilter{VisibleTo: &u.ID, Sort: task.ParseSort("title", "asc"), Limit: 50})
		require.NoError(t, err)
		assert.Len(t, items, total)
		titles := make([]string, 0, len(items))
		for _, it := range items {
			titles = append(titles, it.Title)
		}
		return titles
	}

	assert.Equal(t, []string{"private task", "project task"}, visible(owner))
	assert.Equal(t, []string{"project task"}, visible(member))
	assert.Equal(t, []string{"stranger task"}, visible(stranger))

	all, total, err := f.tasks.List(ctx, task.ListFilter{Sort: task.DefaultSort, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 3, total)

	byProject, _, err := f.tasks.List(ctx, task.ListFilter{ProjectID: &p.ID, Sort: task.DefaultSort, Limit: 50})
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	assert.Equal(t, "project task", byProject[0].Title)
}

func TestTasks_SortByTotalMinutes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, "u@example.com")

	a := f.task(t, u, nil, "a")
	b := f.task(t, u, nil, "b")
	_, err := f.tasks.AddMinutes(ctx, a.ID, 5)
	require.NoError(t, err)
	_, err = f.tasks.AddMinutes(ctx, b.ID, 50)
	require.NoError(t, err)

	items, _, err := f.tasks.List(ctx, task.ListFilter{Sort: task.ParseSort("total_minutes", "desc"), Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
}

func TestTasks_AddMinutesConcurrent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, "u@example.com")
	tk := f.task(t, u, nil, "busy")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.tasks.AddMinutes(ctx, tk.ID, 2)
		}()
	}
	wg.Wait()

	got, err := f.tasks.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.TotalMinutes)
}

func TestTasks_MissingIDs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.tasks.Update(ctx, "nope", task.UpdateRequest{})
	assert.ErrorIs(t, err, task.ErrNotFound)
	_, err = f.tasks.AddMinutes(ctx, "nope", 1)
	assert.ErrorIs(t, err, task.ErrNotFound)
	assert.ErrorIs(t, f.tasks.Delete(ctx, "nope"), task.ErrNotFound)
}

func TestTasks_Stats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.user(t, "u@example.com")

	a := f.task(t, u, nil, "a")
	f.task(t, u, nil, "b")
	done := task.StatusDone
	_, err := f.tasks.Update(ctx, a.ID, task.UpdateRequest{Status: &done})
	require.NoError(t, err)
	_, err = f.tasks.AddMinutes(ctx, a.ID, 90)
	require.NoError(t, err)

	st, err := f.tasks.Stats(ctx, task.ListFilter{VisibleTo: &u.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalTasks)
	assert.Equal(t, 1, st.DoneTasks)
	assert.Equal(t, 50.0, st.CompletionRate)
	assert.Equal(t, 1.5, st.TotalTimeHours)
}

func TestUsers_ListPagesInCreationOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		u := user.New(email, "h", false)
		u.CreatedAt = time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC)
		_, err := f.users.Create(ctx, u)
		require.NoError(t, err)
	}

	items, total, err := f.users.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, "b@example.com", items[0].Email)

	empty, _, err := f.users.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

package seed_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/sprintsync/internal/domain/project"
	"github.com/geocoder89/sprintsync/internal/domain/task"
	"github.com/geocoder89/sprintsync/internal/repo/memory"
	"github.com/geocoder89/sprintsync/internal/security"
	"github.com/geocoder89/sprintsync/internal/seed"
)

func newSeeder(store *memory.Store, withReset bool) *seed.Seeder {
	var reset func(context.Context) error
	if withReset {
		reset = store.Reset
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return seed.New(store.Users(), store.Projects(), store.Tasks(), reset, log)
}

func TestRun_SeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	res, err := newSeeder(store, false).Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, seed.Result{Seeded: true, Users: 3, Projects: 2, Members: 5, Tasks: 4}, res)

	admin, err := store.Users().GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.NoError(t, security.CheckPassword(admin.PasswordHash, "admin123"))

	john, err := store.Users().GetByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	assert.False(t, john.IsAdmin)

	projects, total, err := store.Projects().List(ctx, project.ListFilter{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 2, total)

	for _, p := range projects {
		members, err := store.Projects().ListMembers(ctx, p.ID)
		require.NoError(t, err)

		owners := 0
		for _, m := range members {
			if m.Role == project.RoleOwner {
				owners++
				assert.Equal(t, p.OwnerID, m.UserID)
			}
		}
		assert.Equal(t, 1, owners, "project %s", p.Name)
	}

	st, err := store.Tasks().Stats(ctx, task.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, st.TotalTasks)
	assert.Equal(t, 540, st.TotalTimeMinutes)
}

func TestRun_SkipsWhenUsersExist(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s := newSeeder(store, false)

	_, err := s.Run(ctx, false)
	require.NoError(t, err)

	res, err := s.Run(ctx, false)
	require.NoError(t, err)
	assert.False(t, res.Seeded)

	st, err := store.Users().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalUsers)
}

func TestRun_ForceReseeds(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	_, err := newSeeder(store, false).Run(ctx, true)
	assert.ErrorIs(t, err, seed.ErrResetUnsupported)

	s := newSeeder(store, true)
	_, err = s.Run(ctx, false)
	require.NoError(t, err)

	res, err := s.Run(ctx, true)
	require.NoError(t, err)
	assert.True(t, res.Seeded)

	st, err := store.Users().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalUsers)
	assert.Equal(t, 1, st.AdminUsers)
}

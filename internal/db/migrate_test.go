package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_Embedded(t *testing.T) {
	ms, err := LoadMigrations(migrationFiles)
	require.NoError(t, err)
	require.Len(t, ms, 3)

	for i, m := range ms {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.Up, "migration %d up", m.Version)
		assert.NotEmpty(t, m.Down, "migration %d down", m.Version)
	}

	assert.Equal(t, "users", ms[0].Name)
	assert.Contains(t, ms[2].Up, "total_minutes")
}

func TestLoadMigrations_OrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0010_b.up.sql":   {Data: []byte("SELECT 10")},
		"migrations/0002_a.up.sql":   {Data: []byte("SELECT 2")},
		"migrations/0002_a.down.sql": {Data: []byte("SELECT -2")},
		"migrations/README.md":       {Data: []byte("ignored")},
	}

	ms, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, ms, 2)

	assert.Equal(t, 2, ms[0].Version)
	assert.Equal(t, "a", ms[0].Name)
	assert.Equal(t, "SELECT -2", ms[0].Down)
	assert.Equal(t, 10, ms[1].Version)
	assert.Empty(t, ms[1].Down)
}

func TestLoadMigrations_Errors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{"no direction", fstest.MapFS{"migrations/0001_a.sql": {Data: []byte("x")}}},
		{"bad version", fstest.MapFS{"migrations/abc_a.up.sql": {Data: []byte("x")}}},
		{"no name", fstest.MapFS{"migrations/0001.up.sql": {Data: []byte("x")}}},
		{"down only", fstest.MapFS{"migrations/0001_a.down.sql": {Data: []byte("x")}}},
		{"duplicate version", fstest.MapFS{
			"migrations/0001_a.up.sql": {Data: []byte("x")},
			"migrations/1_b.up.sql":    {Data: []byte("y")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMigrations(tt.fsys)
			assert.Error(t, err)
		})
	}
}

func TestStatusOf(t *testing.T) {
	ms := []Migration{{Version: 1, Name: "users"}, {Version: 2, Name: "projects"}, {Version: 3, Name: "tasks"}}

	st := statusOf(ms, 2, true)
	require.Len(t, st, 3)
	assert.True(t, st[0].Applied)
	assert.False(t, st[0].Dirty)
	assert.True(t, st[1].Applied)
	assert.True(t, st[1].Dirty)
	assert.False(t, st[2].Applied)

	for _, s := range statusOf(ms, 0, false) {
		assert.False(t, s.Applied, "version %d", s.Version)
	}
}

package project_test

import (
	"testing"

	"github.com/geocoder89/sprintsync/internal/domain/project"
	"github.com/stretchr/testify/assert"
)

func rolePtr(r project.Role) *project.Role { return &r }

func TestCheckOwnerInvariant(t *testing.T) {
	tests := []struct {
		name      string
		current   project.Member
		requested *project.Role
		want      error
	}{
		{"add plain member", project.Member{}, rolePtr(project.RoleMember), nil},
		{"add admin", project.Member{}, rolePtr(project.RoleAdmin), nil},
		{"add as owner", project.Member{}, rolePtr(project.RoleOwner), project.ErrOwnerNotAssignable},
		{"promote member to admin", project.Member{Role: project.RoleMember}, rolePtr(project.RoleAdmin), nil},
		{"promote admin to owner", project.Member{Role: project.RoleAdmin}, rolePtr(project.RoleOwner), project.ErrOwnerNotAssignable},
		{"demote owner", project.Member{Role: project.RoleOwner}, rolePtr(project.RoleAdmin), project.ErrOwnerLocked},
		{"remove member", project.Member{Role: project.RoleMember}, nil, nil},
		{"remove owner", project.Member{Role: project.RoleOwner}, nil, project.ErrOwnerLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, project.CheckOwnerInvariant(tt.current, tt.requested), tt.want)
		})
	}
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, project.RoleOwner.AtLeast(project.RoleAdmin))
	assert.True(t, project.RoleAdmin.AtLeast(project.RoleAdmin))
	assert.False(t, project.RoleMember.AtLeast(project.RoleAdmin))
	assert.False(t, project.Role("guest").AtLeast(project.RoleMember))
}

func TestNewMember_DefaultsRole(t *testing.T) {
	m := project.NewMember("p1", "u1", "")
	assert.Equal(t, project.RoleMember, m.Role)
	assert.NotEmpty(t, m.ID)
}

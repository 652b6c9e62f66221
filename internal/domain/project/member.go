package project

import (
	"errors"
	"time"
)

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

var roleRank = map[Role]int{
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants at least the privileges of min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && r.IsValid()
}

type Member struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrMemberNotFound = errors.New("project member not found")
	ErrAlreadyMember  = errors.New("user is already a member of this project")

	// ErrOwnerLocked is returned when an operation would change or remove the
	// owner membership. Ownership moves only through a transfer, which does not exist yet.
	ErrOwnerLocked = errors.New("owner membership cannot be changed; transfer ownership first")
	// ErrOwnerNotAssignable is returned when a caller asks for the owner role directly.
	ErrOwnerNotAssignable = errors.New("owner role cannot be assigned; use an ownership transfer")
)

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Role   Role   `json:"role" binding:"omitempty,oneof=member admin owner"`
}

type UpdateMemberRequest struct {
	Role Role `json:"role" binding:"required,oneof=member admin owner"`
}

// CheckOwnerInvariant guards the single-owner rule for every membership
// mutation. current is the membership being changed (zero value when adding a
// new member); requested is the role being asked for, or nil for a removal.
func CheckOwnerInvariant(current Member, requested *Role) error {
	if current.Role == RoleOwner {
		return ErrOwnerLocked
	}

	if requested != nil && *requested == RoleOwner {
		return ErrOwnerNotAssignable
	}

	return nil
}

package project

import (
	"errors"
	"time"
)

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IsActive    bool      `json:"is_active"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WithMembers is the detail view returned by GET /projects/:id.
type WithMembers struct {
	Project
	Members []Member `json:"members"`
}

var ErrNotFound = errors.New("project not found")

type CreateRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
}

// UpdateRequest is a partial update; nil fields are left untouched.
type UpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	IsActive    *bool   `json:"is_active"`
}

type ListFilter struct {
	// MemberID restricts the list to projects the user belongs to; nil lists every project.
	MemberID *string
	Skip     int
	Limit    int
}

package project

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateRequest, ownerID string) Project {
	now := time.Now().UTC()

	return Project{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewMember(projectID, userID string, role Role) Member {
	now := time.Now().UTC()

	if role == "" {
		role = RoleMember
	}

	return Member{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

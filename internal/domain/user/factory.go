package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func New(email, passwordHash string, isAdmin bool) User {
	now := time.Now().UTC()

	return User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// emails are matched case-insensitively everywhere
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

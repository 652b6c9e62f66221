package user

import (
	"errors"
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	IsAdmin      bool      `json:"is_admin"`
	Description  *string   `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email,max=255"`
	Password        string `json:"password" binding:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

func (r RegisterRequest) PasswordsMatch() bool {
	return r.Password == r.ConfirmPassword
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required,min=8,max=128"`
	ConfirmNewPassword string `json:"confirm_new_password" binding:"required"`
}

func (r ChangePasswordRequest) PasswordsMatch() bool {
	return r.NewPassword == r.ConfirmNewPassword
}

// ProfileUpdate is what a user may change on their own account.
type ProfileUpdate struct {
	Email       *string `json:"email" binding:"omitempty,email,max=255"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// Update is the admin view of a user patch; nil fields are left untouched.
type Update struct {
	Email       *string `json:"email" binding:"omitempty,email,max=255"`
	IsAdmin     *bool   `json:"is_admin"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

type Stats struct {
	TotalUsers   int `json:"total_users"`
	AdminUsers   int `json:"admin_users"`
	RegularUsers int `json:"regular_users"`
}

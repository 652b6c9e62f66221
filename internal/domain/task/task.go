package task

import (
	"errors"
	"time"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	Status       Status    `json:"status"`
	TotalMinutes int       `json:"total_minutes"`
	UserID       string    `json:"user_id"`
	ProjectID    *string   `json:"project_id"`
	OwnerID      *string   `json:"owner_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InProject reports whether the task is linked to a project.
func (t Task) InProject() bool {
	return t.ProjectID != nil && *t.ProjectID != ""
}

func (t Task) IsCreator(userID string) bool {
	return t.UserID == userID
}

func (t Task) IsAssignee(userID string) bool {
	return t.OwnerID != nil && *t.OwnerID == userID
}

var ErrNotFound = errors.New("task not found")

type CreateRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	ProjectID   *string `json:"project_id" binding:"omitempty,uuid"`
	OwnerID     *string `json:"owner_id" binding:"omitempty,uuid"`
}

// UpdateRequest is a partial update. Time is only ever added through AddTimeRequest.
type UpdateRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	Status      *Status `json:"status" binding:"omitempty,oneof=todo in_progress done"`
}

func (r UpdateRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Status == nil
}

type StatusRequest struct {
	Status Status `json:"status" binding:"required,oneof=todo in_progress done"`
}

type AddTimeRequest struct {
	// pointer so that an explicit 0 passes "required"
	Minutes *int `json:"minutes" binding:"required,min=0,max=100000"`
}

type AssignRequest struct {
	OwnerID string `json:"owner_id" binding:"required,uuid"`
}

type Stats struct {
	TotalTasks       int     `json:"total_tasks"`
	TodoTasks        int     `json:"todo_tasks"`
	InProgressTasks  int     `json:"in_progress_tasks"`
	DoneTasks        int     `json:"done_tasks"`
	CompletionRate   float64 `json:"completion_rate"`
	TotalTimeMinutes int     `json:"total_time_minutes"`
	TotalTimeHours   float64 `json:"total_time_hours"`
}

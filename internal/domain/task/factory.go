package task

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// NewFromCreateRequest builds a task for creatorID. The owner defaults to the creator.
func NewFromCreateRequest(req CreateRequest, creatorID string) Task {
	now := time.Now().UTC()

	owner := creatorID
	if req.OwnerID != nil && *req.OwnerID != "" {
		owner = *req.OwnerID
	}

	var projectID *string
	if req.ProjectID != nil && *req.ProjectID != "" {
		p := *req.ProjectID
		projectID = &p
	}

	return Task{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Description:  req.Description,
		Status:       StatusTodo,
		TotalMinutes: 0,
		UserID:       creatorID,
		ProjectID:    projectID,
		OwnerID:      &owner,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewStats derives the summary ratios from raw counts.
func NewStats(todo, inProgress, done, totalMinutes int) Stats {
	total := todo + inProgress + done

	var rate float64
	if total > 0 {
		rate = round1(float64(done) / float64(total) * 100)
	}

	return Stats{
		TotalTasks:       total,
		TodoTasks:        todo,
		InProgressTasks:  inProgress,
		DoneTasks:        done,
		CompletionRate:   rate,
		TotalTimeMinutes: totalMinutes,
		TotalTimeHours:   round1(float64(totalMinutes) / 60),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

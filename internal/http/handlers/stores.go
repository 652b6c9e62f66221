package handlers

import (
	"context"
	"math"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/geocoder89/sprintsync/internal/config"
	"github.com/geocoder89/sprintsync/internal/domain/project"
	"github.com/geocoder89/sprintsync/internal/domain/task"
	"github.com/geocoder89/sprintsync/internal/domain/user"
	"github.com/geocoder89/sprintsync/internal/http/middlewares"
	"github.com/geocoder89/sprintsync/internal/observability"
)

// Store contracts. Both the Postgres and in-memory repos satisfy them.

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	List(ctx context.Context, skip, limit int) ([]user.User, int, error)
	Update(ctx context.Context, id string, upd user.Update) (user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (user.Stats, error)
}

type ProjectStore interface {
	Create(ctx context.Context, p project.Project) (project.Project, error)
	GetByID(ctx context.Context, id string) (project.Project, error)
	List(ctx context.Context, f project.ListFilter) ([]project.Project, int, error)
	Update(ctx context.Context, id string, req project.UpdateRequest) (project.Project, error)
	Delete(ctx context.Context, id string) error

	GetMember(ctx context.Context, projectID, userID string) (project.Member, error)
	ListMembers(ctx context.Context, projectID string) ([]project.Member, error)
	AddMember(ctx context.Context, m project.Member) (project.Member, error)
	UpdateMemberRole(ctx context.Context, projectID, userID string, role project.Role) (project.Member, error)
	RemoveMember(ctx context.Context, projectID, userID string) error
}

type TaskStore interface {
	Create(ctx context.Context, t task.Task) (task.Task, error)
	GetByID(ctx context.Context, id string) (task.Task, error)
	List(ctx context.Context, f task.ListFilter) ([]task.Task, int, error)
	Update(ctx context.Context, id string, req task.UpdateRequest) (task.Task, error)
	AddMinutes(ctx context.Context, id string, minutes int) (task.Task, error)
	SetOwner(ctx context.Context, id string, ownerID *string) (task.Task, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, f task.ListFilter) (task.Stats, error)
}

// Authorizer is implemented by authz.Resolver.
type Authorizer interface {
	IsProjectOwner(ctx context.Context, projectID, userID string) (bool, error)
	IsProjectAdmin(ctx context.Context, projectID, userID string) (bool, error)
	IsProjectMember(ctx context.Context, projectID, userID string) (bool, error)
	CanManageMembers(ctx context.Context, projectID, userID string) (bool, error)
	CanViewTask(ctx context.Context, t task.Task, u user.User) (bool, error)
	CanEditTask(ctx context.Context, t task.Task, u user.User) (bool, error)
	CanAssignTask(ctx context.Context, t task.Task, u user.User) (bool, error)
	CanUnassignTask(ctx context.Context, t task.Task, u user.User) (bool, error)
}

const storeTimeout = 2 * time.Second

func storeCtx() (context.Context, context.CancelFunc) {
	return config.WithTimeout(storeTimeout)
}

// principal returns the authenticated user or writes a 401.
func principal(ctx *gin.Context) (user.User, bool) {
	u, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return user.User{}, false
	}
	return u, true
}

// canonicalID lower-cases a validated uuid so it compares equal to stored ids.
func canonicalID(raw string) string {
	id, err := uuid.Parse(raw)
	if err != nil {
		return raw
	}
	return id.String()
}

func canonicalPtr(raw *string) {
	if raw != nil && *raw != "" {
		*raw = canonicalID(*raw)
	}
}

// pathID returns the path parameter in canonical uuid form. Malformed ids
// cannot name a row and are answered like missing ones.
func pathID(ctx *gin.Context, key string) (string, bool) {
	id, err := uuid.Parse(ctx.Param(key))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// allow evaluates a permission result. It writes 403 (or 500 on a store
// error) and returns false when the request must stop.
func allow(ctx *gin.Context, prom *observability.Prom, ok bool, err error, message string) bool {
	if err != nil {
		RespondInternal(ctx, "Could not check permissions")
		return false
	}
	if !ok {
		prom.IncDenied(ctx.FullPath())
		RespondForbidden(ctx, message)
		return false
	}
	return true
}

type pageQuery struct {
	Skip  int `form:"skip" binding:"omitempty,min=0"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

const defaultPageSize = 20

func (q pageQuery) limit() int {
	if q.Limit <= 0 {
		return defaultPageSize
	}
	return q.Limit
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

func newPage[T any](items []T, total, skip, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items: items,
		Total: total,
		Page:  skip/limit + 1,
		Size:  limit,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

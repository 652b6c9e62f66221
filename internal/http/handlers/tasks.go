package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/sprintsync/internal/domain/project"
	"github.com/geocoder89/sprintsync/internal/domain/task"
	"github.com/geocoder89/sprintsync/internal/domain/user"
	"github.com/geocoder89/sprintsync/internal/observability"
)

type TasksHandler struct {
	tasks    TaskStore
	projects ProjectStore
	users    UserStore
	authz    Authorizer
	prom     *observability.Prom
}

func NewTasksHandler(tasks TaskStore, projects ProjectStore, users UserStore, authz Authorizer, prom *observability.Prom) *TasksHandler {
	return &TasksHandler{
		tasks:    tasks,
		projects: projects,
		users:    users,
		authz:    authz,
		prom:     prom,
	}
}

type taskListQuery struct {
	pageQuery
	Status    string `form:"status" binding:"omitempty,oneof=todo in_progress done"`
	ProjectID string `form:"project_id" binding:"omitempty,uuid"`
	OwnerID   string `form:"owner_id" binding:"omitempty,uuid"`
	SortBy    string `form:"sort_by"`
	Order     string `form:"order" binding:"omitempty,oneof=asc desc"`
}

type taskStatsQuery struct {
	ProjectID string `form:"project_id" binding:"omitempty,uuid"`
}

// scopeToProject checks that the project exists and the caller may read it.
func (h *TasksHandler) scopeToProject(ctx *gin.Context, me user.User, projectID string) bool {
	cctx, cancel := storeCtx()
	defer cancel()

	if _, err := h.projects.GetByID(cctx, projectID); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			RespondNotFound(ctx, "Project not found")
			return false
		}
		RespondInternal(ctx, "Could not load project")
		return false
	}

	if me.IsAdmin {
		return true
	}

	ok, err := h.authz.IsProjectMember(cctx, projectID, me.ID)
	return allow(ctx, h.prom, ok, err, "Access denied to this project")
}

func visibleTo(me user.User) *string {
	if me.IsAdmin {
		return nil
	}
	id := me.ID
	return &id
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (h *TasksHandler) Create(ctx *gin.Context) {
	me, ok := principal(ctx)
	if !ok {
		return
	}

	var req task.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}
	canonicalPtr(req.ProjectID)
	canonicalPtr(req.OwnerID)

	inProject := req.ProjectID != nil && *req.ProjectID != ""
	if inProject && !h.scopeToProject(ctx, me, *req.ProjectID) {
		return
	}

	if req.OwnerID != nil && *req.OwnerID != "" && *req.OwnerID != me.ID {
		if !h.checkAssignee(ctx, *req.OwnerID, req.ProjectID) {
			return
		}
	}

	cctx, cancel := storeCtx()
	defer cancel()

	created, err := h.tasks.Create(cctx, task.NewFromCreateRequest(req, me.ID))
	if err != nil {
		RespondInternal(ctx, "Could not create task")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// checkAssignee verifies that ownerID names an existing user and, for
// project tasks, a member of that project.
func (h *TasksHandler) checkAssignee(ctx *gin.Context, ownerID string, projectID *string) bool {
	cctx, cancel := storeCtx()
	defer cancel()

	if _, err := h.users.GetByID(cctx, ownerID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondValidation(ctx, "invalid_owner", "Assigned owner does not exist")
			return false
		}
		RespondInternal(ctx, "Could not load user")
		return false
	}

	if projectID == nil || *projectID == "" {
		return true
	}

	member, err := h.authz.IsProjectMember(cctx, *projectID, ownerID)
	if err != nil {
		RespondInternal(ctx, "Could not check permissions")
		return false
	}
	if !member {
		RespondValidation(ctx, "owner_not_member", "Assigned owner must be a member of the project")
		return false
	}
	return true
}

func (h *TasksHandler) List(ctx *gin.Context) {
	me, ok := principal(ctx)
	if !ok {
		return
	}

	var q taskListQuery
	if !BindQuery(ctx, &q) {
		return
	}
	q.ProjectID = canonicalID(q.ProjectID)
	q.OwnerID = canonicalID(q.OwnerID)

	if q.ProjectID != "" && !h.scopeToProject(ctx, me, q.ProjectID) {
		return
	}

	f := task.ListFilter{
		VisibleTo: visibleTo(me),
		ProjectID: optional(q.ProjectID),
		OwnerID:   optional(q.OwnerID),
		Sort:      task.ParseSort(q.SortBy, q.Order),
		Skip:      q.Skip,
		Limit:     q.limit(),
	}
	if q.Status != "" {
		st := task.Status(q.Status)
		f.Status = &st
	}

	cctx, cancel := storeCtx()
	defer cancel()

	items, total, err := h.tasks.List(cctx, f)
	if err != nil {
		RespondInternal(ctx, "Could not list tasks")
		return
	}

	ctx.JSON(http.StatusOK, newPage(items, total, f.Skip, f.Limit))
}

func (h *TasksHandler) Stats(ctx *gin.Context) {
	me, ok := principal(ctx)
	if !ok {
		return
	}

	var q taskStatsQuery
	if !BindQuery(ctx, &q) {
		return
	}
	q.ProjectID = canonicalID(q.ProjectID)

	if q.ProjectID != "" && !h.scopeToProject(ctx, me, q.ProjectID) {
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	st, err := h.tasks.Stats(cctx, task.ListFilter{
		VisibleTo: visibleTo(me),
		ProjectID: optional(q.ProjectID),
	})
	if err != nil {
		RespondInternal(ctx, "Could not compute task stats")
		return
	}

	ctx.JSON(http.StatusOK, st)
}

// taskCheck is one of the authorizer's task predicates.
type taskCheck func(h *TasksHandler, ctx *gin.Context, t task.Task, u user.User) (bool, error)

func canView(h *TasksHandler, ctx *gin.Context, t task.Task, u user.User) (bool, error) {
	if u.IsAdmin {
		return true, nil
	}
	return h.authz.CanViewTask(ctx.Request.Context(), t, u)
}

func canEdit(h *TasksHandler, ctx *gin.Context, t task.Task, u user.User) (bool, error) {
	if u.IsAdmin {
		return true, nil
	}
	return h.authz.CanEditTask(ctx.Request.Context(), t, u)
}

func canAssign(h *TasksHandler, ctx *gin.Context, t task.Task, u user.User) (bool, error) {
	return h.authz.CanAssignTask(ctx.Request.Context(), t, u)
}

func canUnassign(h *TasksHandler, ctx *gin.Context, t task.Task, u user.User) (bool, error) {
	return h.authz.CanUnassignTask(ctx.Request.Context(), t, u)
}

// load resolves the principal and the task in the path, then applies check.
// Missing tasks answer 404 before any permission is looked at.
func (h *TasksHandler) load(ctx *gin.Context, check taskCheck, denied string) (task.Task, user.User, bool) {
	me, ok := principal(ctx)
	if !ok {
		return task.Task{}, user.User{}, false
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		RespondNotFound(ctx, "Task not found")
		return task.Task{}, user.User{}, false
	}

	cctx, cancel := storeCtx()
	defer cancel()

	t, err := h.tasks.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return task.Task{}, user.User{}, false
		}
		RespondInternal(ctx, "Could not load task")
		return task.Task{}, user.User{}, false
	}

	allowed, err := check(h, ctx, t, me)
	if !allow(ctx, h.prom, allowed, err, denied) {
		return task.Task{}, user.User{}, false
	}

	return t, me, true
}

// respondTask writes the result of a task mutation.
func (h *TasksHandler) respondTask(ctx *gin.Context, t task.Task, err error, failure string) {
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}
		RespondInternal(ctx, failure)
		return
	}
	ctx.JSON(http.StatusOK, t)
}

func (h *TasksHandler) Get(ctx *gin.Context) {
	t, _, ok := h.load(ctx, canView, "Access denied to this task")
	if !ok {
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, t)
}

func (h *TasksHandler) Update(ctx *gin.Context) {
	var req task.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	t, _, ok := h.load(ctx, canEdit, "Not allowed to edit this task")
	if !ok {
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	updated, err := h.tasks.Update(cctx, t.ID, req)
	h.respondTask(ctx, updated, err, "Could not update task")
}

func (h *TasksHandler) UpdateStatus(ctx *gin.Context) {
	var req task.StatusRequest
	if !BindJSON(ctx, &req) {
		return
	}

	t, _, ok := h.load(ctx, canEdit, "Not allowed to edit this task")
	if !ok {
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	st := req.Status
	updated, err := h.tasks.Update(cctx, t.ID, task.UpdateRequest{Status: &st})
	h.respondTask(ctx, updated, err, "Could not update task status")
}

func (h *TasksHandler) AddTime(ctx *gin.Context) {
	var req task.AddTimeRequest
	if !BindJSON(ctx, &req) {
		return
	}

	t, _, ok := h.load(ctx, canEdit, "Not allowed to log time on this task")
	if !ok {
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	updated, err := h.tasks.AddMinutes(cctx, t.ID, *req.Minutes)
	h.respondTask(ctx, updated, err, "Could not add time")
}

func (h *TasksHandler) Assign(ctx *gin.Context) {
	var req task.AssignRequest
	if !BindJSON(ctx, &req) {
		return
	}
	req.OwnerID = canonicalID(req.OwnerID)

	t, _, ok := h.load(ctx, canAssign, "Only project owners, admins, and system admins can assign tasks")
	if !ok {
		return
	}

	if !h.checkAssignee(ctx, req.OwnerID, t.ProjectID) {
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	owner := req.OwnerID
	updated, err := h.tasks.SetOwner(cctx, t.ID, &owner)
	h.respondTask(ctx, updated, err, "Could not assign task")
}

func (h *TasksHandler) Unassign(ctx *gin.Context) {
	t, _, ok := h.load(ctx, canUnassign, "Not allowed to unassign this task")
	if !ok {
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	updated, err := h.tasks.SetOwner(cctx, t.ID, nil)
	h.respondTask(ctx, updated, err, "Could not unassign task")
}

func (h *TasksHandler) Delete(ctx *gin.Context) {
	t, _, ok := h.load(ctx, canEdit, "Not allowed to delete this task")
	if !ok {
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	if err := h.tasks.Delete(cctx, t.ID); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}
		RespondInternal(ctx, "Could not delete task")
		return
	}

	ctx.Status(http.StatusNoContent)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/sprintsync/internal/domain/project"
	"github.com/geocoder89/sprintsync/internal/domain/user"
	"github.com/geocoder89/sprintsync/internal/observability"
)

type ProjectsHandler struct {
	projects ProjectStore
	users    UserStore
	authz    Authorizer
	prom     *observability.Prom
}

func NewProjectsHandler(projects ProjectStore, users UserStore, authz Authorizer, prom *observability.Prom) *ProjectsHandler {
	return &ProjectsHandler{
		projects: projects,
		users:    users,
		authz:    authz,
		prom:     prom,
	}
}

type projectListQuery struct {
	pageQuery
	All bool `form:"all"`
}

// projectCheck decides whether the principal may act on the loaded project.
type projectCheck func(h *ProjectsHandler, ctx *gin.Context, p project.Project, u user.User) (bool, error)

func projectMember(h *ProjectsHandler, ctx *gin.Context, p project.Project, u user.User) (bool, error) {
	if u.IsAdmin {
		return true, nil
	}
	return h.authz.IsProjectMember(ctx.Request.Context(), p.ID, u.ID)
}

func projectAdmin(h *ProjectsHandler, ctx *gin.Context, p project.Project, u user.User) (bool, error) {
	if u.IsAdmin {
		return true, nil
	}
	return h.authz.IsProjectAdmin(ctx.Request.Context(), p.ID, u.ID)
}

func projectOwner(h *ProjectsHandler, ctx *gin.Context, p project.Project, u user.User) (bool, error) {
	if u.IsAdmin {
		return true, nil
	}
	return h.authz.IsProjectOwner(ctx.Request.Context(), p.ID, u.ID)
}

func memberManager(h *ProjectsHandler, ctx *gin.Context, p project.Project, u user.User) (bool, error) {
	if u.IsAdmin {
		return true, nil
	}
	return h.authz.CanManageMembers(ctx.Request.Context(), p.ID, u.ID)
}

// load resolves the project named by :id and applies check. A nil check
// only establishes existence.
func (h *ProjectsHandler) load(ctx *gin.Context, check projectCheck, denied string) (project.Project, user.User, bool) {
	me, ok := principal(ctx)
	if !ok {
		return project.Project{}, user.User{}, false
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		RespondNotFound(ctx, "Project not found")
		return project.Project{}, user.User{}, false
	}

	cctx, cancel := storeCtx()
	defer cancel()

	p, err := h.projects.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			RespondNotFound(ctx, "Project not found")
			return project.Project{}, user.User{}, false
		}
		RespondInternal(ctx, "Could not load project")
		return project.Project{}, user.User{}, false
	}

	if check != nil {
		allowed, err := check(h, ctx, p, me)
		if !allow(ctx, h.prom, allowed, err, denied) {
			return project.Project{}, user.User{}, false
		}
	}

	return p, me, true
}

func (h *ProjectsHandler) Create(ctx *gin.Context) {
	me, ok := principal(ctx)
	if !ok {
		return
	}

	var req project.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	p, err := h.projects.Create(cctx, project.NewFromCreateRequest(req, me.ID))
	if err != nil {
		RespondInternal(ctx, "Could not create project")
		return
	}

	ctx.JSON(http.StatusCreated, p)
}

func (h *ProjectsHandler) List(ctx *gin.Context) {
	me, ok := principal(ctx)
	if !ok {
		return
	}

	var q projectListQuery
	if !BindQuery(ctx, &q) {
		return
	}

	f := project.ListFilter{Skip: q.Skip, Limit: q.limit()}
	if !(q.All && me.IsAdmin) {
		id := me.ID
		f.MemberID = &id
	}

	cctx, cancel := storeCtx()
	defer cancel()

	items, total, err := h.projects.List(cctx, f)
	if err != nil {
		RespondInternal(ctx, "Could not list projects")
		return
	}

	ctx.JSON(http.StatusOK, newPage(items, total, f.Skip, f.Limit))
}

func (h *ProjectsHandler) Get(ctx *gin.Context) {
	p, _, ok := h.load(ctx, projectMember, "Access denied to this project")
	if !ok {
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	members, err := h.projects.ListMembers(cctx, p.ID)
	if err != nil {
		RespondInternal(ctx, "Could not load project members")
		return
	}
	if members == nil {
		members = []project.Member{}
	}

	ctx.JSON(http.StatusOK, project.WithMembers{Project: p, Members: members})
}

func (h *ProjectsHandler) Update(ctx *gin.Context) {
	var req project.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	p, _, ok := h.load(ctx, projectAdmin, "Only project owners, admins, and system admins can update projects")
	if !ok {
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	updated, err := h.projects.Update(cctx, p.ID, req)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			RespondNotFound(ctx, "Project not found")
			return
		}
		RespondInternal(ctx, "Could not update project")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *ProjectsHandler) Delete(ctx *gin.Context) {
	p, _, ok := h.load(ctx, projectOwner, "Only project owners and system admins can delete projects")
	if !ok {
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	if err := h.projects.Delete(cctx, p.ID); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			RespondNotFound(ctx, "Project not found")
			return
		}
		RespondInternal(ctx, "Could not delete project")
		return
	}

	ctx.Status(http.StatusNoContent)
}

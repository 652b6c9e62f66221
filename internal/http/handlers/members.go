package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/sprintsync/internal/domain/project"
	"github.com/geocoder89/sprintsync/internal/domain/user"
)

// respondOwnerRule maps a CheckOwnerInvariant failure to its 403.
func respondOwnerRule(ctx *gin.Context, err error, lockedMsg string) {
	switch {
	case errors.Is(err, project.ErrOwnerLocked):
		RespondForbidden(ctx, lockedMsg)
	case errors.Is(err, project.ErrOwnerNotAssignable):
		RespondForbidden(ctx, "Cannot assign owner role. Use transfer ownership endpoint.")
	default:
		RespondInternal(ctx, "Could not update membership")
	}
}

func (h *ProjectsHandler) ListMembers(ctx *gin.Context) {
	p, _, ok := h.load(ctx, projectMember, "Access denied to this project")
	if !ok {
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	members, err := h.projects.ListMembers(cctx, p.ID)
	if err != nil {
		RespondInternal(ctx, "Could not list members")
		return
	}
	if members == nil {
		members = []project.Member{}
	}

	ctx.JSON(http.StatusOK, members)
}

func (h *ProjectsHandler) AddMember(ctx *gin.Context) {
	var req project.AddMemberRequest
	if !BindJSON(ctx, &req) {
		return
	}
	req.UserID = canonicalID(req.UserID)

	p, _, ok := h.load(ctx, memberManager, "Only project owners, admins, and system admins can add members")
	if !ok {
		return
	}

	role := req.Role
	if role == "" {
		role = project.RoleMember
	}
	if err := project.CheckOwnerInvariant(project.Member{}, &role); err != nil {
		respondOwnerRule(ctx, err, "")
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	if _, err := h.users.GetByID(cctx, req.UserID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not load user")
		return
	}

	m, err := h.projects.AddMember(cctx, project.NewMember(p.ID, req.UserID, role))
	if err != nil {
		switch {
		case errors.Is(err, project.ErrAlreadyMember):
			RespondValidation(ctx, "already_member", "User is already a member of this project")
		case errors.Is(err, project.ErrNotFound):
			RespondNotFound(ctx, "Project not found")
		default:
			RespondInternal(ctx, "Could not add member")
		}
		return
	}

	ctx.JSON(http.StatusCreated, m)
}

// member loads the membership named by :user_id in p.
func (h *ProjectsHandler) member(ctx *gin.Context, p project.Project) (project.Member, bool) {
	userID, ok := pathID(ctx, "user_id")
	if !ok {
		RespondNotFound(ctx, "User is not a member of this project")
		return project.Member{}, false
	}

	cctx, cancel := storeCtx()
	defer cancel()

	m, err := h.projects.GetMember(cctx, p.ID, userID)
	if err != nil {
		if errors.Is(err, project.ErrMemberNotFound) {
			RespondNotFound(ctx, "User is not a member of this project")
			return project.Member{}, false
		}
		RespondInternal(ctx, "Could not load membership")
		return project.Member{}, false
	}

	return m, true
}

func (h *ProjectsHandler) UpdateMember(ctx *gin.Context) {
	var req project.UpdateMemberRequest
	if !BindJSON(ctx, &req) {
		return
	}

	p, _, ok := h.load(ctx, projectOwner, "Only project owners and system admins can update member roles")
	if !ok {
		return
	}

	m, ok := h.member(ctx, p)
	if !ok {
		return
	}

	if err := project.CheckOwnerInvariant(m, &req.Role); err != nil {
		respondOwnerRule(ctx, err, "Cannot change role of project owner. Transfer ownership first.")
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	updated, err := h.projects.UpdateMemberRole(cctx, p.ID, m.UserID, req.Role)
	if err != nil {
		if errors.Is(err, project.ErrMemberNotFound) {
			RespondNotFound(ctx, "User is not a member of this project")
			return
		}
		RespondInternal(ctx, "Could not update member role")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *ProjectsHandler) RemoveMember(ctx *gin.Context) {
	p, me, ok := h.load(ctx, nil, "")
	if !ok {
		return
	}

	target, _ := pathID(ctx, "user_id")
	self := target == me.ID

	if self && p.OwnerID == me.ID {
		RespondForbidden(ctx, "Project owners cannot remove themselves. Transfer ownership first.")
		return
	}

	if !self {
		allowed, err := memberManager(h, ctx, p, me)
		if !allow(ctx, h.prom, allowed, err, "Only project owners, admins, and system admins can remove other members") {
			return
		}
	}

	m, ok := h.member(ctx, p)
	if !ok {
		return
	}

	if err := project.CheckOwnerInvariant(m, nil); err != nil {
		respondOwnerRule(ctx, err, "Cannot remove project owner. Transfer ownership first.")
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	if err := h.projects.RemoveMember(cctx, p.ID, m.UserID); err != nil {
		if errors.Is(err, project.ErrMemberNotFound) {
			RespondNotFound(ctx, "User is not a member of this project")
			return
		}
		RespondInternal(ctx, "Could not remove member")
		return
	}

	ctx.Status(http.StatusNoContent)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/sprintsync/internal/domain/user"
)

type UsersHandler struct {
	users UserStore
}

func NewUsersHandler(users UserStore) *UsersHandler {
	return &UsersHandler{users: users}
}

func (h *UsersHandler) GetProfile(ctx *gin.Context) {
	u, ok := principal(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) UpdateProfile(ctx *gin.Context) {
	u, ok := principal(ctx)
	if !ok {
		return
	}

	var req user.ProfileUpdate
	if !BindJSON(ctx, &req) {
		return
	}

	h.update(ctx, u.ID, user.Update{Email: req.Email, Description: req.Description})
}

func (h *UsersHandler) List(ctx *gin.Context) {
	var q pageQuery
	if !BindQuery(ctx, &q) {
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	items, total, err := h.users.List(cctx, q.Skip, q.limit())
	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, newPage(items, total, q.Skip, q.limit()))
}

func (h *UsersHandler) Stats(ctx *gin.Context) {
	cctx, cancel := storeCtx()
	defer cancel()

	st, err := h.users.Stats(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not compute user stats")
		return
	}

	ctx.JSON(http.StatusOK, st)
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		RespondNotFound(ctx, "User not found")
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	u, err := h.users.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		RespondNotFound(ctx, "User not found")
		return
	}

	var req user.Update
	if !BindJSON(ctx, &req) {
		return
	}

	h.update(ctx, id, req)
}

func (h *UsersHandler) update(ctx *gin.Context, id string, upd user.Update) {
	cctx, cancel := storeCtx()
	defer cancel()

	u, err := h.users.Update(cctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrEmailTaken):
			RespondValidation(ctx, "email_taken", "Email already registered")
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	me, ok := principal(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		RespondNotFound(ctx, "User not found")
		return
	}

	if id == me.ID {
		RespondValidation(ctx, "cannot_delete_self", "Cannot delete your own account")
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	if err := h.users.Delete(cctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.Status(http.StatusNoContent)
}

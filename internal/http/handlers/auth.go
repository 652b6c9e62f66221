package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/sprintsync/internal/auth"
	"github.com/geocoder89/sprintsync/internal/config"
	"github.com/geocoder89/sprintsync/internal/domain/user"
	"github.com/geocoder89/sprintsync/internal/http/middlewares"
	"github.com/geocoder89/sprintsync/internal/security"
)

// TokenRevoker denylists a token id until the given time.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
}

type AuthHandler struct {
	users   UserStore
	jwt     *auth.Manager
	revoker TokenRevoker
	log     *slog.Logger
}

// NewAuthHandler wires the auth endpoints. revoker may be nil, in which case
// logout is a client-side operation only.
func NewAuthHandler(users UserStore, jwtManager *auth.Manager, revoker TokenRevoker, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		users:   users,
		jwt:     jwtManager,
		revoker: revoker,
		log:     log,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !req.PasswordsMatch() {
		RespondValidation(ctx, "passwords_mismatch", "Passwords do not match")
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.users.Create(cctx, user.New(req.Email, hash, false))

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondValidation(ctx, "email_taken", "Email already registered")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "user_registered", "user_id", u.ID)

	ctx.JSON(http.StatusCreated, u)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			RespondInternal(ctx, "Could not sign in")
			return
		}
		RespondUnAuthorized(ctx, "invalid_credentials", "Incorrect email or password")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Incorrect email or password")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(foundUser.Email)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"token_type":   "bearer",
		"expires_in":   int(h.jwt.AccessTTL().Seconds()),
	})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := principal(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	u, ok := principal(ctx)
	if !ok {
		return
	}

	var req user.ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !req.PasswordsMatch() {
		RespondValidation(ctx, "passwords_mismatch", "New passwords do not match")
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.CurrentPassword); err != nil {
		RespondValidation(ctx, "invalid_current_password", "Current password is incorrect")
		return
	}

	hash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		RespondInternal(ctx, "Could not change password")
		return
	}

	cctx, cancel := storeCtx()
	defer cancel()

	if err := h.users.UpdatePassword(cctx, u.ID, hash); err != nil {
		RespondInternal(ctx, "Could not change password")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// Logout denylists the presented token until it expires.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	claims, ok := middlewares.ClaimsFromContext(ctx)

	if ok && h.revoker != nil && claims.ExpiresAt != nil {
		cctx, cancel := storeCtx()
		defer cancel()

		if err := h.revoker.Revoke(cctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			h.log.ErrorContext(ctx.Request.Context(), "token_revoke_failed", "err", err)
			RespondInternal(ctx, "Could not log out")
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

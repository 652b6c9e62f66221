package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/sprintsync/internal/auth"
	"github.com/geocoder89/sprintsync/internal/domain/user"
)

// Keep these small interfaces so tests can fake them easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type UserLoader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuthMiddleware struct {
	jwt     TokenVerifier
	users   UserLoader
	revoked RevocationChecker
	log     *slog.Logger
}

// NewAuthMiddleware builds the bearer-token guard. revoked may be nil when no
// denylist is configured.
func NewAuthMiddleware(jwt TokenVerifier, users UserLoader, revoked RevocationChecker, log *slog.Logger) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{jwt: jwt, users: users, revoked: revoked, log: log}
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	abort(c, http.StatusUnauthorized, "unauthorized", message)
}

// RequireAuth validates the bearer token and loads the principal by the
// token subject. A subject that no longer exists is treated like a bad token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		scheme, raw, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			unauthorized(c, "Missing or invalid Authorization header")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(strings.TrimSpace(raw))
		if err != nil {
			unauthorized(c, "Could not validate credentials")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if m.revoked != nil {
			revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
			if err != nil {
				// fail open: the denylist is best effort and tokens are short-lived
				m.log.WarnContext(ctx, "token_denylist_unavailable", "err", err)
			}
			if revoked {
				unauthorized(c, "Token has been revoked")
				return
			}
		}

		u, err := m.users.GetByEmail(ctx, claims.Email())
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				unauthorized(c, "Could not validate credentials")
				return
			}
			abort(c, http.StatusInternalServerError, "internal_error", "Could not load user")
			return
		}

		SetCurrentUser(c, u)
		c.Set(ctxClaimsKey, claims)

		c.Next()
	}
}

// Optional helpers so handlers don’t need to know the magic keys.

// SetCurrentUser stores the principal for downstream handlers.
func SetCurrentUser(c *gin.Context, u user.User) {
	c.Set(ctxUserKey, u)
}

func CurrentUser(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

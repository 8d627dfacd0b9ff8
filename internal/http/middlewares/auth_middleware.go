package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/skincareplus/internal/actorctx"
	"github.com/geocoder89/skincareplus/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (actorctx.Identity, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")

	if len(authHeader) < len("Bearer ") || !strings.EqualFold(authHeader[:len("Bearer ")], "Bearer ") {
		return "", false
	}

	raw := strings.TrimSpace(authHeader[len("Bearer "):])

	return raw, raw != ""
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
			return
		}

		id, err := m.auth.Authenticate(c.Request.Context(), raw)
		if errors.Is(err, auth.ErrAuthUnavailable) {
			// the client keeps its token and retries
			slog.Default().ErrorContext(c.Request.Context(), "auth_backend_unavailable", "err", err)
			c.Header("Retry-After", "5")
			abortWithError(c, http.StatusServiceUnavailable, "auth_unavailable", "Authentication is temporarily unavailable")
			return
		}
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
			return
		}

		// identity travels on the request context; handlers read it through actorctx
		c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), id))
		c.Set(CtxAccessToken, raw)

		c.Next()
	}
}

// IdentityFromContext is a shortcut for handlers and key extractors.
func IdentityFromContext(c *gin.Context) (actorctx.Identity, bool) {
	return actorctx.IdentityFrom(c.Request.Context())
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"filerepo/logger"
	"filerepo/models"
	"filerepo/services"
	"filerepo/utils"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID   = "user_id"
	ContextUserName = "user_name"
	ContextUserRole = "user_role"
)

// Authenticator turns a verified token subject into a caller allowed to use the API.
type Authenticator interface {
	Authenticate(ctx context.Context, userID uint) (services.Identity, error)
}

func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(c, http.StatusUnauthorized, "malformed authorization header")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			utils.Error(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		identity, err := auth.Authenticate(c.Request.Context(), claims.UserID)
		if err != nil {
			var appErr *services.AppError
			if errors.As(err, &appErr) {
				utils.Error(c, appErr.HTTPCode, appErr.Message)
			} else {
				logger.Errorw("authentication lookup failed", "user_id", claims.UserID, "error", err)
				utils.Error(c, http.StatusInternalServerError, "internal error")
			}
			c.Abort()
			return
		}

		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextUserName, identity.DisplayName)
		c.Set(ContextUserRole, identity.Role)
		c.Next()
	}
}

// RequirePrincipal must run after AuthMiddleware.
func RequirePrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextUserRole) != models.RolePrincipal {
			utils.Error(c, http.StatusForbidden, "principal access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

package middleware

import (
	"strings"

	"paywall_backend/internal/auth"
	"paywall_backend/internal/logger"
	"paywall_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// Ключи gin.Context, которые выставляет AuthMiddleware
const (
	SubjectKey = "subject"
	RoleKey    = "role"
)

// AuthMiddleware - middleware проверки JWT.
// Токен берется из Authorization: Bearer, для websocket также из ?token=.
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			abortWith(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			return
		}

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			logger.CtxWarn(c.Request.Context(), "invalid token", "error", err, "path", c.Request.URL.Path)
			abortWith(c, apperrors.NewUnauthorizedError("Invalid token"))
			return
		}

		c.Set(SubjectKey, claims.Subject)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}

// RequireRoles - middleware для проверки нескольких возможных ролей
func RequireRoles(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		role := c.GetString(RoleKey)
		if role == "" {
			abortWith(c, apperrors.NewForbiddenError("Access denied: no role"))
			return
		}
		if !roleSet[role] {
			abortWith(c, apperrors.NewForbiddenError("Access denied: insufficient role"))
			return
		}
		c.Next()
	}
}

// GetSubject извлекает sub токена из контекста
func GetSubject(c *gin.Context) string {
	return c.GetString(SubjectKey)
}

func abortWith(c *gin.Context, err *apperrors.AppError) {
	apperrors.HandleError(c, err)
	c.Abort()
}

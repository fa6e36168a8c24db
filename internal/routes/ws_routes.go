package routes

import (
	"paywall_backend/internal/auth"
	"paywall_backend/internal/middleware"
	"paywall_backend/ws"

	"github.com/gin-gonic/gin"
)

// SetupWebSocketRoutes - поток уведомлений для чат-коллаборатора
func SetupWebSocketRoutes(r *gin.Engine, tokens *auth.TokenManager, wsHandler *ws.WebSocketHandler) {
	wsGroup := r.Group("/ws")
	wsGroup.Use(middleware.AuthMiddleware(tokens), middleware.RequireRoles(auth.RoleService))
	{
		wsGroup.GET("/notifications", wsHandler.ServeWS)
	}
}

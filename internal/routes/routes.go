package routes

import (
	"paywall_backend/internal/auth"
	"paywall_backend/internal/handlers"
	"paywall_backend/internal/logger"
	"paywall_backend/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.WebSocketHandler,
	tokens *auth.TokenManager,
) {
	SetupPublicRoutes(ginRouter, appHandlers)

	api := ginRouter.Group("/api/v1")
	SetupServiceRoutes(api, tokens, appHandlers.EntitlementHandler)
	SetupAdminRoutes(api, tokens, appHandlers.AdminHandler)

	SetupWebSocketRoutes(ginRouter, tokens, wsHandler)
	logger.Info("WebSocket route /ws/notifications registered")
}

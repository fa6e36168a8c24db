package routes

import (
	"paywall_backend/internal/auth"
	"paywall_backend/internal/handlers"
	"paywall_backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupServiceRoutes - API контент-бота
func SetupServiceRoutes(api *gin.RouterGroup, tokens *auth.TokenManager, h *handlers.EntitlementHandler) {
	service := api.Group("")
	service.Use(middleware.AuthMiddleware(tokens), middleware.RequireRoles(auth.RoleService))
	{
		service.GET("/entitlements/:ref", h.GetEntitlement)
		service.POST("/transactions", h.CreateTransaction)
		service.POST("/transactions/:param/check", h.CheckTransaction)
	}
}

package routes

import (
	"paywall_backend/internal/auth"
	"paywall_backend/internal/handlers"
	"paywall_backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupAdminRoutes(api *gin.RouterGroup, tokens *auth.TokenManager, h *handlers.AdminHandler) {
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokens), middleware.RequireRoles(auth.RoleOperator))
	{
		admin.POST("/principals/:ref/approve", h.Approve)
		admin.POST("/principals/:ref/revoke", h.Revoke)

		admin.GET("/transactions/pending", h.ListPending)
		admin.GET("/transactions/:id", h.GetTransaction)
		admin.POST("/transactions/:id/cancel", h.CancelTransaction)

		admin.GET("/stats", h.GetStats)
	}
}

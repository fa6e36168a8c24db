package routes

import (
	"paywall_backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupPublicRoutes - эндпоинты шлюза и health. Аутентификация - подпись
// запроса или секрет webhook'а, проверяются в сервисах.
func SetupPublicRoutes(r *gin.Engine, appHandlers *handlers.AppHandlers) {
	r.GET("/health", appHandlers.HealthHandler.Health)

	clickGroup := r.Group("/click")
	{
		clickGroup.POST("/prepare", appHandlers.ClickHandler.Prepare)
		clickGroup.POST("/complete", appHandlers.ClickHandler.Complete)
	}

	r.POST("/webhook/click", appHandlers.WebhookHandler.HandleClickWebhook)
}

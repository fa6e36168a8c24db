package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	ClickHandler       *ClickHandler
	WebhookHandler     *WebhookHandler
	EntitlementHandler *EntitlementHandler
	AdminHandler       *AdminHandler
	HealthHandler      *HealthHandler
}

package handlers

import (
	"net/http"

	"paywall_backend/internal/dto"
	"paywall_backend/internal/logger"
	"paywall_backend/internal/services"
	"paywall_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

const webhookSecretHeader = "X-Webhook-Secret"

type WebhookHandler struct {
	*BaseHandler
	webhookService services.WebhookService
}

func NewWebhookHandler(base *BaseHandler, webhookService services.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    base,
		webhookService: webhookService,
	}
}

// HandleClickWebhook - асинхронное уведомление Click об исходе платежа.
// Любой ответ, включая отказ, имеет вид {success, message}.
func (h *WebhookHandler) HandleClickWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	secret := c.GetHeader(webhookSecretHeader)

	if err := h.webhookService.Authenticate(ctx, secret); err != nil {
		h.reject(c, err)
		return
	}

	var req dto.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.CtxWarn(ctx, "webhook body rejected", "error", err)
		h.reject(c, apperrors.ErrMalformedRequest("Invalid JSON body"))
		return
	}

	resp, err := h.webhookService.Handle(ctx, h.GetDB(c), secret, &req)
	if err != nil {
		h.reject(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *WebhookHandler) reject(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		logger.CtxWithError(c.Request.Context(), "webhook processing failed", err)
		appErr = apperrors.InternalError(err)
	} else if appErr.ServerFault() {
		logger.CtxWithError(c.Request.Context(), "webhook processing failed", err)
	}

	c.AbortWithStatusJSON(appErr.Status(), dto.WebhookResponse{Success: false, Message: appErr.Message})
}

package handlers

import (
	"net/http"

	"paywall_backend/internal/dto"

	"github.com/gin-gonic/gin"
)

// HealthFlags - флаги деградированных режимов, вычисляются при сборке приложения
type HealthFlags struct {
	WebhookAuthEnabled bool
	StatusAPIEnabled   bool
	ExternalLedger     bool
}

type clientCounter interface {
	GetClientCount() int
}

type HealthHandler struct {
	*BaseHandler
	flags   HealthFlags
	clients clientCounter
}

func NewHealthHandler(base *BaseHandler, flags HealthFlags, clients clientCounter) *HealthHandler {
	return &HealthHandler{BaseHandler: base, flags: flags, clients: clients}
}

func (h *HealthHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:             "ok",
		Database:           "ok",
		WebhookAuthEnabled: h.flags.WebhookAuthEnabled,
		StatusAPIEnabled:   h.flags.StatusAPIEnabled,
		ExternalLedger:     h.flags.ExternalLedger,
	}
	if h.clients != nil {
		resp.WSClients = h.clients.GetClientCount()
	}

	status := http.StatusOK
	sqlDB, err := h.GetDB(c).DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}

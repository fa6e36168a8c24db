package handlers

import (
	"net/http"

	"paywall_backend/internal/middleware"
	"paywall_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler - ручные действия операторов и чтение реестра.
// Оператор - sub токена, allow-list проверяет OverrideService.
type AdminHandler struct {
	*BaseHandler
	overrideService services.OverrideService
	paymentService  services.PaymentService
}

func NewAdminHandler(base *BaseHandler, overrideService services.OverrideService, paymentService services.PaymentService) *AdminHandler {
	return &AdminHandler{
		BaseHandler:     base,
		overrideService: overrideService,
		paymentService:  paymentService,
	}
}

func (h *AdminHandler) Approve(c *gin.Context) {
	resp, err := h.overrideService.Approve(c.Request.Context(), h.GetDB(c), middleware.GetSubject(c), c.Param("ref"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) Revoke(c *gin.Context) {
	resp, err := h.overrideService.Revoke(c.Request.Context(), h.GetDB(c), middleware.GetSubject(c), c.Param("ref"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) CancelTransaction(c *gin.Context) {
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	t, err := h.overrideService.CancelTransaction(c.Request.Context(), h.GetDB(c), middleware.GetSubject(c), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *AdminHandler) ListPending(c *gin.Context) {
	page, pageSize := ParsePagination(c)

	resp, err := h.paymentService.ListPending(c.Request.Context(), h.GetDB(c), page, pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) GetTransaction(c *gin.Context) {
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	details, err := h.paymentService.GetTransactionDetails(c.Request.Context(), h.GetDB(c), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.paymentService.GetStats(c.Request.Context(), h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

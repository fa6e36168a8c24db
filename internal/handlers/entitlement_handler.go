package handlers

import (
	"net/http"

	"paywall_backend/internal/dto"
	"paywall_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// EntitlementHandler - API для контент-бота (роль service)
type EntitlementHandler struct {
	*BaseHandler
	entitlementService services.EntitlementService
	paymentService     services.PaymentService
}

func NewEntitlementHandler(base *BaseHandler, entitlementService services.EntitlementService, paymentService services.PaymentService) *EntitlementHandler {
	return &EntitlementHandler{
		BaseHandler:        base,
		entitlementService: entitlementService,
		paymentService:     paymentService,
	}
}

func (h *EntitlementHandler) GetEntitlement(c *gin.Context) {
	ref := c.Param("ref")

	entitled, err := h.entitlementService.IsEntitled(c.Request.Context(), h.GetDB(c), ref)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EntitlementResponse{PrincipalRef: ref, Entitled: entitled})
}

func (h *EntitlementHandler) CreateTransaction(c *gin.Context) {
	var req dto.CreateTransactionRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.paymentService.CreatePendingTransaction(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// CheckTransaction - кнопка "Проверить оплату"
func (h *EntitlementHandler) CheckTransaction(c *gin.Context) {
	var req dto.CheckTransactionRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.entitlementService.CheckTransaction(c.Request.Context(), h.GetDB(c), req.PrincipalRef, c.Param("param"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"paywall_backend/internal/dto"
	"paywall_backend/internal/logger"
	"paywall_backend/internal/models"
	"paywall_backend/internal/services"
	"paywall_backend/internal/services/click"
	"paywall_backend/internal/validator"
	"paywall_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gorm.io/gorm"
)

const clickTimeLayout = "2006-01-02 15:04:05"

type protocolOperation func(ctx context.Context, db *gorm.DB, req *dto.ClickRequest) (*models.Transaction, error)

// ClickHandler - эндпоинты PREPARE/COMPLETE. Ответ всегда HTTP 200:
// результат передается кодом error в теле, как требует Click.
type ClickHandler struct {
	*BaseHandler
	protocol services.ProtocolService
	signer   *click.Signer
	now      func() time.Time
}

func NewClickHandler(base *BaseHandler, protocol services.ProtocolService, signer *click.Signer) *ClickHandler {
	return &ClickHandler{
		BaseHandler: base,
		protocol:    protocol,
		signer:      signer,
		now:         time.Now,
	}
}

func (h *ClickHandler) Prepare(c *gin.Context) {
	h.handle(c, "click_prepare", h.protocol.Prepare)
}

func (h *ClickHandler) Complete(c *gin.Context) {
	h.handle(c, "click_complete", h.protocol.Complete)
}

func (h *ClickHandler) handle(c *gin.Context, source string, op protocolOperation) {
	req, err := bindClickRequest(c)
	if err != nil {
		logger.CtxWarn(c.Request.Context(), "click request rejected: bad body", "source", source, "error", err)
		h.respond(c, source, req, nil, apperrors.ErrMalformedRequest("Error in request from click"))
		return
	}

	if err := h.validateClickRequest(req); err != nil {
		logger.CtxWarn(c.Request.Context(), "click request rejected: validation", "source", source, "error", err)
		h.respond(c, source, req, nil, err)
		return
	}

	ctx := logger.WithTransactionParam(c.Request.Context(), req.MerchantTransID)
	t, err := op(ctx, h.GetDB(c), req)
	h.respond(c, source, req, t, err)
}

// validateClickRequest: неверный action дает -3, любое другое поле -8
func (h *ClickHandler) validateClickRequest(req *dto.ClickRequest) error {
	err := h.validator.Validate(req)
	if err == nil {
		return nil
	}

	var vErr *validator.ValidationError
	if !errors.As(err, &vErr) {
		return apperrors.InternalError(err)
	}
	if _, bad := vErr.Errors["action"]; bad {
		return apperrors.ErrInvalidOperation("payment", "Action not found")
	}
	return apperrors.ErrMalformedRequest(vErr.Error())
}

func (h *ClickHandler) respond(c *gin.Context, source string, req *dto.ClickRequest, t *models.Transaction, err error) {
	code := click.ResultFor(err)
	if code == click.ResultInternalError {
		logger.CtxWithError(c.Request.Context(), "click request failed", err, "source", source)
	}

	clickTransID, _ := strconv.ParseInt(req.ClickTransID, 10, 64)
	resp := dto.ClickResponse{
		ClickTransID:    clickTransID,
		MerchantTransID: req.MerchantTransID,
		Error:           int(code),
		ErrorNote:       code.Note(),
		SignTime:        h.now().Format(clickTimeLayout),
	}

	prepareID := req.MerchantPrepareID
	if t != nil {
		id := t.ID
		if req.Action == click.ActionComplete {
			resp.MerchantConfirmID = &id
		} else {
			resp.MerchantPrepareID = &id
			prepareID = strconv.FormatUint(uint64(id), 10)
		}
	}

	resp.SignString = h.signer.ResponseDigest(click.SignatureParams{
		ClickTransID:      req.ClickTransID,
		ServiceID:         req.ServiceID,
		MerchantTransID:   req.MerchantTransID,
		MerchantPrepareID: prepareID,
		Amount:            req.Amount,
		Action:            req.Action,
		SignTime:          resp.SignTime,
	})

	logger.PaymentLog(source, req.MerchantTransID, strconv.Itoa(resp.Error), err)
	c.JSON(http.StatusOK, resp)
}

// bindClickRequest принимает form и JSON. Числа в JSON переводятся в строки
// без изменения записи: подпись считается по исходному тексту.
func bindClickRequest(c *gin.Context) (*dto.ClickRequest, error) {
	req := &dto.ClickRequest{}

	if c.ContentType() != binding.MIMEJSON {
		if err := c.ShouldBind(req); err != nil {
			return req, err
		}
		return req, nil
	}

	decoder := json.NewDecoder(c.Request.Body)
	decoder.UseNumber()

	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return req, err
	}

	normalized := make(map[string]string, len(fields))
	for key, value := range fields {
		switch v := value.(type) {
		case nil:
		case string:
			normalized[key] = v
		case json.Number:
			normalized[key] = v.String()
		default:
			return req, fmt.Errorf("field %s has unsupported type %T", key, value)
		}
	}

	raw, err := json.Marshal(normalized)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(raw, req); err != nil {
		return req, err
	}
	return req, nil
}

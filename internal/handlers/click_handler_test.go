package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(body, contentType string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/click/prepare", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", contentType)
	return c
}

func TestBindClickRequest_JSONNumbersKeepTheirText(t *testing.T) {
	c := newContext(`{"click_trans_id": 2210, "amount": 50000.00, "action": 0, "merchant_trans_id": "abc", "error": null}`, "application/json")

	req, err := bindClickRequest(c)

	require.NoError(t, err)
	assert.Equal(t, "2210", req.ClickTransID)
	assert.Equal(t, "50000.00", req.Amount, "подпись считается по исходной записи суммы")
	assert.Equal(t, "0", req.Action)
	assert.Equal(t, "abc", req.MerchantTransID)
	assert.Empty(t, req.Error)
}

func TestBindClickRequest_Form(t *testing.T) {
	c := newContext("click_trans_id=2210&amount=50000&action=1&merchant_prepare_id=7", "application/x-www-form-urlencoded")

	req, err := bindClickRequest(c)

	require.NoError(t, err)
	assert.Equal(t, "2210", req.ClickTransID)
	assert.Equal(t, "7", req.MerchantPrepareID)
	assert.Equal(t, "1", req.Action)
}

func TestBindClickRequest_RejectsNestedValues(t *testing.T) {
	for _, body := range []string{`{"amount": {"value": 1}}`, `{"action": true}`, `not json`} {
		_, err := bindClickRequest(newContext(body, "application/json"))
		assert.Error(t, err, body)
	}
}

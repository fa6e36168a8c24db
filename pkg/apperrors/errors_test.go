package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentTaxonomy_HTTPCodes(t *testing.T) {
	cases := []struct {
		err  *AppError
		code ErrorCode
		http int
	}{
		{ErrAuthenticationFailure("bad sign"), CodeAuthenticationFailure, http.StatusUnauthorized},
		{ErrIntegrityViolation("amount"), CodeIntegrityViolation, http.StatusBadRequest},
		{ErrUpstreamRejection(nil, "click"), CodeUpstreamRejection, http.StatusBadRequest},
		{ErrAlreadySettled(), CodeAlreadySettled, http.StatusOK},
		{ErrTransientUnavailable(errors.New("timeout")), CodeTransientUnavailable, http.StatusServiceUnavailable},
		{ErrMalformedRequest("tx"), CodeValidationFailed, http.StatusBadRequest},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code)
		assert.Equal(t, tc.http, tc.err.HTTPCode, "код %s", tc.code)
	}
}

func TestHasCode_FollowsWrapChain(t *testing.T) {
	inner := ErrTransientUnavailable(errors.New("dial tcp: timeout"))
	wrapped := fmt.Errorf("verify: %w", inner)

	assert.True(t, HasCode(wrapped, CodeTransientUnavailable))
	assert.False(t, HasCode(wrapped, CodeUpstreamRejection))
	assert.False(t, HasCode(errors.New("plain"), CodeTransientUnavailable))
}

func TestAppError_MarshalHidesCause(t *testing.T) {
	err := ErrUpstreamRejection(errors.New("secret internal"), "Click rejected payment")

	data, mErr := err.MarshalJSON()
	assert.NoError(t, mErr)
	assert.NotContains(t, string(data), "secret internal")
	assert.Contains(t, string(data), "UPSTREAM_REJECTION")
}

func TestAppError_StatusAndFaultClass(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, (&AppError{Code: CodeInternalError}).Status())

	transient := ErrTransientUnavailable(errors.New("timeout"))
	assert.True(t, transient.Transient())
	assert.False(t, transient.ServerFault(), "503 от шлюза - не сбой сервера")

	assert.True(t, InternalError(errors.New("db down")).ServerFault())
	assert.False(t, ErrIntegrityViolation("amount").ServerFault())
}

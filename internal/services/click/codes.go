package click

import (
	"paywall_backend/pkg/apperrors"
)

// ResultCode - целочисленный код ошибки в ответе Click
type ResultCode int

const (
	ResultSuccess             ResultCode = 0
	ResultSignFailed          ResultCode = -1
	ResultIncorrectAmount     ResultCode = -2
	ResultActionNotFound      ResultCode = -3
	ResultAlreadyPaid         ResultCode = -4
	ResultTransactionNotFound ResultCode = -5
	ResultInternalError       ResultCode = -7
	ResultBadRequest          ResultCode = -8
	ResultCancelled           ResultCode = -9
)

var resultNotes = map[ResultCode]string{
	ResultSuccess:             "Success",
	ResultSignFailed:          "SIGN CHECK FAILED!",
	ResultIncorrectAmount:     "Incorrect parameter amount",
	ResultActionNotFound:      "Action not found",
	ResultAlreadyPaid:         "Already paid",
	ResultTransactionNotFound: "Transaction does not exist",
	ResultInternalError:       "Failed to update transaction",
	ResultBadRequest:          "Error in request from click",
	ResultCancelled:           "Transaction cancelled",
}

func (c ResultCode) Note() string {
	return resultNotes[c]
}

// ResultFor переводит ошибку сервиса в код протокола
func ResultFor(err error) ResultCode {
	if err == nil {
		return ResultSuccess
	}

	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return ResultInternalError
	}

	switch appErr.Code {
	case apperrors.CodeAuthenticationFailure:
		return ResultSignFailed
	case apperrors.CodeIntegrityViolation:
		return ResultIncorrectAmount
	case apperrors.CodeInvalidOperation:
		return ResultActionNotFound
	case apperrors.CodeAlreadySettled:
		return ResultAlreadyPaid
	case apperrors.CodeNotFound:
		return ResultTransactionNotFound
	case apperrors.CodeValidationFailed:
		return ResultBadRequest
	case apperrors.CodeInvalidStatus, apperrors.CodeUpstreamRejection:
		return ResultCancelled
	default:
		return ResultInternalError
	}
}

package validator

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const maxTransactionParamLen = 64

// registerCustomRules регистрирует кастомные функции валидации
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// 'decimal_amount': положительная десятичная сумма в строке
	mustRegister("decimal_amount", validateDecimalAmount)

	// 'click_action': 0 (PREPARE) или 1 (COMPLETE)
	mustRegister("click_action", validateClickAction)

	// 'tx_param': непустой токен транзакции не длиннее колонки
	mustRegister("tx_param", validateTransactionParam)
}

func validateDecimalAmount(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // 'required' обрабатывает пустые
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return false
	}
	return d.IsPositive()
}

func validateClickAction(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "0", "1":
		return true
	default:
		return false
	}
}

func validateTransactionParam(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value != "" && len(value) <= maxTransactionParamLen
}

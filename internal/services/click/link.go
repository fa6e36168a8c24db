package click

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

type LinkConfig struct {
	PayURL     string
	ServiceID  string
	MerchantID string
	ReturnURL  string
}

// PaymentLink собирает ссылку на оплату my.click.uz
func PaymentLink(cfg LinkConfig, amount, transactionParam, merchantUserID string) string {
	params := url.Values{}
	params.Set("service_id", cfg.ServiceID)
	params.Set("merchant_id", cfg.MerchantID)
	params.Set("amount", amount)
	params.Set("transaction_param", transactionParam)
	params.Set("return_url", cfg.ReturnURL)
	if merchantUserID != "" {
		params.Set("merchant_user_id", merchantUserID)
	}

	base := cfg.PayURL
	if base == "" {
		base = "https://my.click.uz/services/pay"
	}
	return base + "?" + params.Encode()
}

// NewTransactionParam - UUIDv4 без дефисов
func NewTransactionParam() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

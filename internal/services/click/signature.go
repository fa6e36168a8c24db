package click

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Коды action протокола Click
const (
	ActionPrepare  = "0"
	ActionComplete = "1"
)

// SignatureParams - поля запроса в том виде, в каком их прислал Click.
// Строки не нормализуются: сумма "50000.00" и "50000" дают разные подписи.
type SignatureParams struct {
	ClickTransID      string
	ServiceID         string
	MerchantTransID   string
	MerchantPrepareID string
	Amount            string
	Action            string
	SignTime          string
}

type Signer struct {
	secret string
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: secret}
}

// Digest - hex(md5(конкатенация)). Чистая функция.
func Digest(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "")))
	return hex.EncodeToString(sum[:])
}

// RequestDigest - подпись входящего запроса. merchant_prepare_id участвует только в COMPLETE.
func (s *Signer) RequestDigest(p SignatureParams) string {
	if p.Action == ActionComplete {
		return s.ResponseDigest(p)
	}
	return Digest(p.ClickTransID, p.ServiceID, s.secret, p.MerchantTransID, p.Amount, p.Action, p.SignTime)
}

// ResponseDigest - подпись нашего ответа, merchant_prepare_id всегда после merchant_trans_id
func (s *Signer) ResponseDigest(p SignatureParams) string {
	return Digest(p.ClickTransID, p.ServiceID, s.secret, p.MerchantTransID, p.MerchantPrepareID, p.Amount, p.Action, p.SignTime)
}

// Verify сравнивает подпись точным строковым равенством
func (s *Signer) Verify(p SignatureParams, signString string) bool {
	return s.RequestDigest(p) == signString
}

// VerifyWebhookSecret проверяет заголовок x-webhook-secret.
// Пустой настроенный секрет означает режим без аутентификации.
func VerifyWebhookSecret(configured, provided string) bool {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return true
	}
	return strings.TrimSpace(provided) == configured
}

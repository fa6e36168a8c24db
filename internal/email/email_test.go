package email

import (
	"context"
	"testing"
	"time"

	"paywall_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorAlerter_RendersAlert(t *testing.T) {
	provider := &LogProvider{}
	alerter := NewOperatorAlerter(provider, []string{"ops@example.com"})

	err := alerter.Alert(context.Background(), Alert{
		Kind:             AlertIntegrityViolation,
		TransactionParam: "abc123",
		PrincipalRef:     "42",
		Reason:           "amount_mismatch",
		Details:          map[string]string{"expected": "50000", "received": "40000"},
	})
	require.NoError(t, err)

	sent := provider.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"ops@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].Subject, "abc123")
	assert.Contains(t, sent[0].HTMLBody, "amount_mismatch")
	assert.Contains(t, sent[0].HTMLBody, "received: 40000")
}

func TestTemplateManager_UnknownTemplate(t *testing.T) {
	_, err := NewTemplateManager().Render("missing", nil)
	assert.Error(t, err)
}

func TestConfigFrom(t *testing.T) {
	var cfg config.Config
	cfg.Email.SMTPHost = "smtp.example.com"
	cfg.Notify.Timeout = 3 * time.Second

	smtp := ConfigFrom(&cfg)
	assert.Equal(t, 587, smtp.Port)
	assert.Equal(t, 3*time.Second, smtp.Timeout)
	assert.False(t, smtp.Enabled(), "без получателей алерты не отправляются")

	cfg.Email.AlertTo = []string{"ops@example.com"}
	assert.True(t, ConfigFrom(&cfg).Enabled())
}

func TestGomailProvider_Validate(t *testing.T) {
	assert.Error(t, NewGomailProvider(&SMTPConfig{Port: 25}).Validate())
	assert.Error(t, NewGomailProvider(&SMTPConfig{Host: "smtp", Port: 70000}).Validate())
	assert.NoError(t, NewGomailProvider(&SMTPConfig{Host: "smtp", Port: 25}).Validate())
}

func TestGomailProvider_RespectsContext(t *testing.T) {
	// 192.0.2.0/24 (TEST-NET-1) не маршрутизируется, dial зависает до таймаута
	p := NewGomailProvider(&SMTPConfig{Host: "192.0.2.1", Port: 25})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Send(ctx, &Email{To: []string{"ops@example.com"}, Subject: "x", Body: "y"})
	assert.Error(t, err)
}

package email

import (
	"context"
	"fmt"
)

var alertTitles = map[AlertKind]string{
	AlertIntegrityViolation: "Несовпадение суммы платежа",
	AlertUpstreamRejection:  "Click отклонил платеж",
}

// OperatorAlerter рассылает операторам письма об инцидентах по платежам
type OperatorAlerter struct {
	provider Provider
	renderer *TemplateManager
	to       []string
}

func NewOperatorAlerter(provider Provider, to []string) *OperatorAlerter {
	return &OperatorAlerter{
		provider: provider,
		renderer: NewTemplateManager(),
		to:       to,
	}
}

// NewAlerterFromConfig выбирает gomail при настроенном SMTP, иначе пишет в лог
func NewAlerterFromConfig(cfg *SMTPConfig) *OperatorAlerter {
	if cfg.Enabled() {
		return NewOperatorAlerter(NewGomailProvider(cfg), cfg.AlertTo)
	}
	return NewOperatorAlerter(&LogProvider{}, cfg.AlertTo)
}

func (a *OperatorAlerter) Alert(ctx context.Context, alert Alert) error {
	title := alertTitles[alert.Kind]
	if title == "" {
		title = string(alert.Kind)
	}

	body, err := a.renderer.Render(string(alert.Kind), TemplateData{
		"Title":            title,
		"TransactionParam": alert.TransactionParam,
		"PrincipalRef":     alert.PrincipalRef,
		"Reason":           alert.Reason,
		"Details":          alert.Details,
	})
	if err != nil {
		return err
	}

	return a.provider.Send(ctx, &Email{
		To:       a.to,
		Subject:  fmt.Sprintf("[paywall] %s: %s", title, alert.TransactionParam),
		HTMLBody: body,
	})
}

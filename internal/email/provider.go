package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/gomail.v2"
)

// Provider определяет интерфейс для отправки email
type Provider interface {
	Send(ctx context.Context, email *Email) error
	Validate() error
}

// GomailProvider отправляет письма через SMTP (gomail)
type GomailProvider struct {
	config *SMTPConfig
	dialer *gomail.Dialer
}

func NewGomailProvider(config *SMTPConfig) *GomailProvider {
	return &GomailProvider{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
	}
}

// Send отправляет письмо. gomail не принимает context, поэтому отправка
// идет в отдельной горутине, а ожидание ограничено ctx.
func (p *GomailProvider) Send(ctx context.Context, email *Email) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if len(email.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	m := gomail.NewMessage()
	from := email.From
	if from == "" {
		from = p.config.FromEmail
	}
	m.SetHeader("From", from)
	m.SetHeader("To", email.To...)
	m.SetHeader("Subject", email.Subject)
	if email.Body != "" {
		m.SetBody("text/plain", email.Body)
	}
	if email.HTMLBody != "" {
		if email.Body != "" {
			m.AddAlternative("text/html", email.HTMLBody)
		} else {
			m.SetBody("text/html", email.HTMLBody)
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- p.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

// Validate проверяет конфигурацию SMTP
func (p *GomailProvider) Validate() error {
	if p.config.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if p.config.Port <= 0 || p.config.Port > 65535 {
		return fmt.Errorf("invalid SMTP port: %d", p.config.Port)
	}
	return nil
}

// LogProvider пишет письма в лог вместо отправки. Для локальной разработки и тестов.
type LogProvider struct {
	mu   sync.Mutex
	sent []*Email
}

func (p *LogProvider) Send(ctx context.Context, email *Email) error {
	slog.InfoContext(ctx, "email suppressed",
		"to", email.To,
		"subject", email.Subject,
	)
	p.mu.Lock()
	p.sent = append(p.sent, email)
	p.mu.Unlock()
	return nil
}

// Sent возвращает копию отправленных писем
func (p *LogProvider) Sent() []*Email {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Email(nil), p.sent...)
}

func (p *LogProvider) Validate() error { return nil }

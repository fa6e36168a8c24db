package email

import (
	"time"

	"paywall_backend/internal/config"
)

// SMTPConfig содержит конфигурацию SMTP сервера
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	AlertTo   []string
	Timeout   time.Duration
}

// ConfigFrom собирает SMTPConfig из секции email общего конфига
func ConfigFrom(cfg *config.Config) *SMTPConfig {
	c := &SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		AlertTo:   cfg.Email.AlertTo,
		Timeout:   cfg.Notify.Timeout,
	}
	if c.Port == 0 {
		c.Port = 587
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Enabled - SMTP настроен и есть кому слать
func (c *SMTPConfig) Enabled() bool {
	return c.Host != "" && len(c.AlertTo) > 0
}

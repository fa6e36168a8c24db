package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Политики обработки временной недоступности Click при проверке webhook'а
const (
	TransientLeavePending = "leave_pending"
	TransientRetry        = "retry"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	// Внешняя БД платежей (read-only), используется для сверки
	ExternalLedger struct {
		DSN   string `yaml:"url"`
		Table string `yaml:"table"`
	} `yaml:"external_ledger"`

	Click struct {
		ServiceID      string        `yaml:"service_id"`
		MerchantID     string        `yaml:"merchant_id"`
		MerchantUserID string        `yaml:"merchant_user_id"`
		SecretKey      string        `yaml:"secret_key"`
		StatusBaseURL  string        `yaml:"status_base_url"`
		StatusTimeout  time.Duration `yaml:"status_timeout"`
		PayURL         string        `yaml:"pay_url"`
		ReturnURL      string        `yaml:"return_url"`
		Amount         string        `yaml:"amount"` // цена доступа, строкой чтобы не терять точность
	} `yaml:"click"`

	Webhook struct {
		Secret          string        `yaml:"secret"`
		TransientPolicy string        `yaml:"transient_policy"`
		RetryAttempts   int           `yaml:"retry_attempts"`
		RetryBackoff    time.Duration `yaml:"retry_backoff"`
	} `yaml:"webhook"`

	Admin struct {
		OperatorIDs []string `yaml:"operator_ids"`
	} `yaml:"admin"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // в минутах
	} `yaml:"jwt"`

	Email struct {
		SMTPHost     string   `yaml:"smtp_host"`
		SMTPPort     int      `yaml:"smtp_port"`
		SMTPUsername string   `yaml:"smtp_user"`
		SMTPPassword string   `yaml:"smtp_password"`
		FromEmail    string   `yaml:"from_email"`
		AlertTo      []string `yaml:"alert_to"`
	} `yaml:"email"`

	Notify struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"notify"`

	Worker struct {
		Enabled     bool          `yaml:"enabled"`
		Interval    time.Duration `yaml:"interval"`
		StaleAfter  time.Duration `yaml:"stale_after"`
		Concurrency int           `yaml:"concurrency"`
	} `yaml:"worker"`
}

var AppConfig *Config

// LoadConfig загружает конфигурацию: из окружения, если задан DATABASE_URL,
// иначе из YAML-файла (CONFIG_PATH или config/config.yaml).
func LoadConfig() {
	var cfg Config

	if os.Getenv("DATABASE_URL") == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		loaded, err := LoadFile(configPath)
		if err != nil {
			log.Fatalf("Failed to load config file at %s: %v", configPath, err)
		}
		AppConfig = loaded
		return
	}

	log.Println("Загрузка конфигурации из переменных окружения")
	cfg = FromEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	AppConfig = &cfg
}

// LoadFile читает и валидирует YAML-конфиг
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv собирает конфиг из переменных окружения (docker / тесты)
func FromEnv() Config {
	var cfg Config

	cfg.Database.DSN = os.Getenv("DATABASE_URL")
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")

	cfg.ExternalLedger.DSN = os.Getenv("EXTERNAL_LEDGER_URL")

	cfg.Click.ServiceID = os.Getenv("CLICK_SERVICE_ID")
	cfg.Click.MerchantID = os.Getenv("CLICK_MERCHANT_ID")
	cfg.Click.MerchantUserID = os.Getenv("CLICK_MERCHANT_USER_ID")
	cfg.Click.SecretKey = os.Getenv("CLICK_SECRET_KEY")
	cfg.Click.ReturnURL = os.Getenv("CLICK_RETURN_URL")
	cfg.Click.Amount = os.Getenv("CLICK_AMOUNT")

	cfg.Webhook.Secret = os.Getenv("WEBHOOK_SECRET")
	cfg.Webhook.TransientPolicy = os.Getenv("WEBHOOK_TRANSIENT_POLICY")

	if ids := os.Getenv("ADMIN_IDS"); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.Admin.OperatorIDs = append(cfg.Admin.OperatorIDs, id)
			}
		}
	}

	return cfg
}

// ApplyDefaults проставляет значения по умолчанию для незаданных полей
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.ExternalLedger.Table == "" {
		c.ExternalLedger.Table = "payments"
	}
	if c.Click.StatusBaseURL == "" {
		c.Click.StatusBaseURL = "https://api.click.uz"
	}
	if c.Click.StatusTimeout == 0 {
		c.Click.StatusTimeout = 10 * time.Second
	}
	if c.Click.PayURL == "" {
		c.Click.PayURL = "https://my.click.uz/services/pay"
	}
	if c.Webhook.TransientPolicy == "" {
		c.Webhook.TransientPolicy = TransientLeavePending
	}
	if c.Webhook.RetryAttempts == 0 {
		c.Webhook.RetryAttempts = 3
	}
	if c.Webhook.RetryBackoff == 0 {
		c.Webhook.RetryBackoff = 500 * time.Millisecond
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 60 * 24
	}
	if c.Notify.Timeout == 0 {
		c.Notify.Timeout = 5 * time.Second
	}
	if c.Worker.Interval == 0 {
		c.Worker.Interval = 5 * time.Minute
	}
	if c.Worker.StaleAfter == 0 {
		c.Worker.StaleAfter = 10 * time.Minute
	}
	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = 4
	}
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Click.Amount == "" {
		return fmt.Errorf("click.amount is required")
	}
	switch c.Webhook.TransientPolicy {
	case TransientLeavePending, TransientRetry:
	default:
		return fmt.Errorf("webhook.transient_policy must be %q or %q, got %q",
			TransientLeavePending, TransientRetry, c.Webhook.TransientPolicy)
	}
	if c.Webhook.RetryAttempts < 0 {
		return fmt.Errorf("webhook.retry_attempts must not be negative")
	}
	return nil
}

// StatusAPIConfigured сообщает, можно ли перепроверять платежи через Click API
func (c *Config) StatusAPIConfigured() bool {
	return c.Click.ServiceID != "" && c.Click.MerchantUserID != "" && c.Click.SecretKey != ""
}

// IsOperator проверяет, входит ли идентификатор в список операторов
func (c *Config) IsOperator(id string) bool {
	for _, op := range c.Admin.OperatorIDs {
		if op == id {
			return true
		}
	}
	return false
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}

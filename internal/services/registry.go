package services

import (
	"time"

	"paywall_backend/internal/config"
	"paywall_backend/internal/repositories"
	"paywall_backend/internal/services/click"
)

// Dependencies - общие зависимости сервисов
type Dependencies struct {
	TransactionRepo repositories.TransactionRepository
	PrincipalRepo   repositories.PrincipalRepository
	EventRepo       repositories.EventRepository
	ExternalLedger  repositories.ExternalLedger
	StatusChecker   click.StatusChecker

	Notifier      Notifier
	Alerter       Alerter
	NotifyTimeout time.Duration

	Now func() time.Time
}

// NewDependencies собирает стандартные репозитории; внешние клиенты задает вызывающий
func NewDependencies(ledger repositories.ExternalLedger, status click.StatusChecker, notifier Notifier, alerter Alerter) Dependencies {
	return Dependencies{
		TransactionRepo: repositories.NewTransactionRepository(),
		PrincipalRepo:   repositories.NewPrincipalRepository(),
		EventRepo:       repositories.NewEventRepository(),
		ExternalLedger:  ledger,
		StatusChecker:   status,
		Notifier:        notifier,
		Alerter:         alerter,
	}
}

func newSettlement(deps Dependencies) *settlement {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &settlement{
		txRepo:        deps.TransactionRepo,
		principalRepo: deps.PrincipalRepo,
		eventRepo:     deps.EventRepo,
		dispatch:      newDispatcher(deps.Notifier, deps.Alerter, deps.NotifyTimeout),
		now:           now,
	}
}

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	ProtocolService    ProtocolService
	WebhookService     WebhookService
	EntitlementService EntitlementService
	OverrideService    OverrideService
	PaymentService     PaymentService
}

// NewServiceContainer связывает сервисы с конфигурацией
func NewServiceContainer(cfg *config.Config, deps Dependencies) *ServiceContainer {
	if deps.NotifyTimeout == 0 {
		deps.NotifyTimeout = cfg.Notify.Timeout
	}
	if deps.ExternalLedger == nil {
		deps.ExternalLedger = repositories.NoopExternalLedger{}
	}
	if deps.StatusChecker == nil {
		deps.StatusChecker = click.NewStatusClient(StatusConfigFrom(cfg))
	}

	return &ServiceContainer{
		ProtocolService: NewProtocolService(deps, click.NewSigner(cfg.Click.SecretKey)),
		WebhookService: NewWebhookService(deps, WebhookConfig{
			Secret:          cfg.Webhook.Secret,
			TransientPolicy: cfg.Webhook.TransientPolicy,
			RetryAttempts:   cfg.Webhook.RetryAttempts,
			RetryBackoff:    cfg.Webhook.RetryBackoff,
		}),
		EntitlementService: NewEntitlementService(deps),
		OverrideService:    NewOverrideService(deps, cfg.Admin.OperatorIDs),
		PaymentService:     NewPaymentService(deps, PaymentConfigFrom(cfg)),
	}
}

// StatusConfigFrom - настройки Click status API из общего конфига
func StatusConfigFrom(cfg *config.Config) click.StatusConfig {
	return click.StatusConfig{
		ServiceID:      cfg.Click.ServiceID,
		MerchantUserID: cfg.Click.MerchantUserID,
		SecretKey:      cfg.Click.SecretKey,
		BaseURL:        cfg.Click.StatusBaseURL,
		Timeout:        cfg.Click.StatusTimeout,
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paywall_backend/database"
	"paywall_backend/internal/auth"
	"paywall_backend/internal/config"
	"paywall_backend/internal/email"
	"paywall_backend/internal/handlers"
	"paywall_backend/internal/logger"
	"paywall_backend/internal/middleware"
	"paywall_backend/internal/repositories"
	"paywall_backend/internal/routes"
	"paywall_backend/internal/services"
	"paywall_backend/internal/services/click"
	"paywall_backend/internal/validator"
	"paywall_backend/internal/workers"
	"paywall_backend/pkg/apperrors"
	"paywall_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

// Application - собранный HTTP-сервис со всеми зависимостями
type Application struct {
	Router   *gin.Engine
	Services *services.ServiceContainer
	Hub      *ws.WebSocketManager
	Tokens   *auth.TokenManager
}

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	apperrors.SetDebug(cfg.Server.Env == "development")
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Connecting to database...")
	gormDB, err := database.ConnectGorm(cfg.Database.DSN)
	if err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}
	logger.Info("Database connected")

	deps, closeLedger, err := Dependencies(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies", "error", err)
	}
	defer closeLedger()

	application, err := Build(ctx, cfg, gormDB, deps)
	if err != nil {
		logger.Fatal("Failed to build application", "error", err)
	}

	if cfg.Worker.Enabled {
		worker := workers.NewReconcileWorker(gormDB, repositories.NewTransactionRepository(), application.Services.EntitlementService, workers.ReconcileConfig{
			Interval:    cfg.Worker.Interval,
			StaleAfter:  cfg.Worker.StaleAfter,
			Concurrency: cfg.Worker.Concurrency,
		})
		worker.Start(ctx)
	}

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Fatal("Server startup error", "error", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
}

// Dependencies собирает внешние клиенты из конфига: внешнюю БД платежей
// (если задан DSN) и Click status API. Notifier и Alerter проставит Build.
func Dependencies(cfg *config.Config) (services.Dependencies, func(), error) {
	closer := func() {}

	var ledger repositories.ExternalLedger = repositories.NoopExternalLedger{}
	if cfg.ExternalLedger.DSN != "" {
		sqlLedger, err := repositories.OpenExternalLedger(cfg.ExternalLedger.DSN, cfg.ExternalLedger.Table)
		if err != nil {
			return services.Dependencies{}, closer, err
		}
		ledger = sqlLedger
		closer = func() {
			if err := sqlLedger.Close(); err != nil {
				logger.Warn("Failed to close external ledger", "error", err)
			}
		}
	} else {
		logger.Warn("External ledger is not configured, reconciliation relies on local state only")
	}

	status := click.NewStatusClient(services.StatusConfigFrom(cfg))
	if !status.Configured() {
		logger.Warn("Click status API is not configured, webhook payments are accepted without verification")
	}

	return services.NewDependencies(ledger, status, nil, nil), closer, nil
}

// Build связывает сервисы, хэндлеры и маршруты. Хаб WebSocket живет до отмены ctx.
func Build(ctx context.Context, cfg *config.Config, db *gorm.DB, deps services.Dependencies) (*Application, error) {
	tokens, err := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}

	hub := ws.NewWebSocketManager()
	go hub.Run(ctx)

	if deps.Notifier == nil {
		deps.Notifier = hub
	}
	if deps.Alerter == nil {
		deps.Alerter = email.NewAlerterFromConfig(email.ConfigFrom(cfg))
	}
	if cfg.Webhook.Secret == "" {
		logger.Warn("Webhook secret is empty, webhook authentication is disabled")
	}

	serviceContainer := services.NewServiceContainer(cfg, deps)
	appHandlers := initializeHandlers(cfg, serviceContainer, hub, healthFlags(cfg, deps))

	router := initializeGinRouter(db)
	routes.RegisterRoutes(router, appHandlers, ws.NewWebSocketHandler(hub), tokens)

	return &Application{
		Router:   router,
		Services: serviceContainer,
		Hub:      hub,
		Tokens:   tokens,
	}, nil
}

func healthFlags(cfg *config.Config, deps services.Dependencies) handlers.HealthFlags {
	flags := handlers.HealthFlags{
		WebhookAuthEnabled: cfg.Webhook.Secret != "",
		StatusAPIEnabled:   cfg.StatusAPIConfigured(),
	}
	if deps.StatusChecker != nil {
		flags.StatusAPIEnabled = deps.StatusChecker.Configured()
	}
	if deps.ExternalLedger != nil {
		_, noop := deps.ExternalLedger.(repositories.NoopExternalLedger)
		flags.ExternalLedger = !noop
	}
	return flags
}

func initializeHandlers(cfg *config.Config, svc *services.ServiceContainer, hub *ws.WebSocketManager, flags handlers.HealthFlags) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(validator.New())

	return &handlers.AppHandlers{
		ClickHandler:       handlers.NewClickHandler(baseHandler, svc.ProtocolService, click.NewSigner(cfg.Click.SecretKey)),
		WebhookHandler:     handlers.NewWebhookHandler(baseHandler, svc.WebhookService),
		EntitlementHandler: handlers.NewEntitlementHandler(baseHandler, svc.EntitlementService, svc.PaymentService),
		AdminHandler:       handlers.NewAdminHandler(baseHandler, svc.OverrideService, svc.PaymentService),
		HealthHandler:      handlers.NewHealthHandler(baseHandler, flags, hub),
	}
}

func initializeGinRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}

package main

import (
	"fmt"

	"paywall_backend/database"
	"paywall_backend/internal/app"
	"paywall_backend/internal/config"
	"paywall_backend/internal/email"
	"paywall_backend/internal/logger"
	"paywall_backend/internal/services"

	"gorm.io/gorm"
)

// environment - конфиг, БД и сервисы для одной команды
type environment struct {
	cfg      *config.Config
	db       *gorm.DB
	services *services.ServiceContainer
	close    func()
}

func openEnvironment() (*environment, error) {
	cfg := config.GetConfig()
	logger.Init(cfg.Server.Env)

	db, err := database.ConnectGorm(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	deps, closeLedger, err := app.Dependencies(cfg)
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}
	// Подписчиков WebSocket у CLI нет, пользователи узнают о доступе при следующем запросе
	deps.Notifier = services.NoopNotifier{}
	deps.Alerter = email.NewAlerterFromConfig(email.ConfigFrom(cfg))

	return &environment{
		cfg:      cfg,
		db:       db,
		services: services.NewServiceContainer(cfg, deps),
		close:    closeLedger,
	}, nil
}

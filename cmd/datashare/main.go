package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"datashare/internal/auth"
	"datashare/internal/config"
	"datashare/internal/constants"
	"datashare/internal/handlers"
	"datashare/internal/httpapi"
	"datashare/internal/permissions"
	"datashare/internal/pricing"
	"datashare/internal/services"
	"datashare/internal/store"
	"datashare/pkg/telegrambot"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := setupLogger(cfg.LogLevel)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the database
	st, err := store.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Errorf("Failed to close database: %v", err)
		}
	}()

	if err := st.Migrate(ctx); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	prices, err := pricing.NewTable(cfg.Pricing)
	if err != nil {
		logger.Fatalf("Failed to build price table: %v", err)
	}

	// Initialize services
	validator := services.NewTextValidator(logger)
	qrService := services.NewQRService(logger)
	accounts := services.NewAccountService(st, validator, cfg.SupportedCountries, logger)
	sessions := services.NewSessionService(st, accounts, qrService, logger)
	settlement := services.NewSettlementService(st, prices, logger)
	gateway := services.NewPaymentGateway(cfg.Payment, logger)
	purchases := services.NewPurchaseService(st, prices, gateway, cfg.Payment.Currency, logger)
	admin := services.NewAdminService(st, logger)

	if err := accounts.EnsureAdmin(ctx, cfg.AdminEmail); err != nil {
		logger.Fatalf("Failed to promote admin account: %v", err)
	}

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	if cfg.Telegram.BotEnabled() {
		permController := permissions.NewController(accounts, logger)
		bot, err := telegrambot.NewBot(cfg, handlers.Services{
			Accounts:   accounts,
			Sessions:   sessions,
			Settlement: settlement,
			Purchases:  purchases,
			Admin:      admin,
			State:      services.NewUserStateService(logger),
			QR:         qrService,
			Prices:     prices,
		}, permController, logger)
		if err != nil {
			logger.Fatalf("Failed to create bot: %v", err)
		}

		go func() {
			if err := bot.Start(ctx); err != nil {
				logger.Errorf("Bot failed: %v", err)
			}
		}()
	} else {
		logger.Info("TG_TOKEN not set, Telegram bot disabled")
	}

	server := httpapi.NewServer(cfg.HTTP, httpapi.Deps{
		Store:      st,
		Accounts:   accounts,
		Sessions:   sessions,
		Settlement: settlement,
		Purchases:  purchases,
		Admin:      admin,
		Tokens:     auth.NewTokenIssuer(cfg.Auth),
		Prices:     prices,
	}, logger)

	logger.Info("Starting datashare")
	if err := server.Start(ctx); err != nil {
		logger.Errorf("HTTP API failed: %v", err)
	}
}

// setupLogger sets up the logger
func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.Printf("Invalid log level %s, defaulting to info", logLevel)
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)

	// Set formatter
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: constants.TimestampFormat,
	})

	return logger
}

package telegrambot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"datashare/internal/commands"
	"datashare/internal/config"
	"datashare/internal/constants"
	"datashare/internal/handlers"
	"datashare/internal/permissions"
)

// Bot represents a Telegram bot
type Bot struct {
	bot      *telebot.Bot
	config   *config.Config
	handlers map[permissions.AccessType]handlers.MessageHandler
	permCtrl *permissions.PermissionController
	logger   *logrus.Logger
}

// NewBot creates a new Telegram bot
func NewBot(
	cfg *config.Config,
	svc handlers.Services,
	permCtrl *permissions.PermissionController,
	logger *logrus.Logger,
) (*Bot, error) {
	settings := telebot.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			logger.Errorf("Telegram bot error: %v", err)
			if c != nil {
				_ = c.Send("An error occurred. Please try again later.")
			}
		},
	}

	b, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	factory := handlers.NewHandlerFactory(svc, cfg, logger)

	bot := &Bot{
		bot:      b,
		config:   cfg,
		handlers: make(map[permissions.AccessType]handlers.MessageHandler),
		permCtrl: permCtrl,
		logger:   logger,
	}

	// Initialize handlers for different access types
	for _, accessType := range []permissions.AccessType{permissions.Guest, permissions.Member, permissions.Admin} {
		bot.handlers[accessType] = factory.CreateHandler(accessType)
	}

	bot.setupMiddleware()

	return bot, nil
}

// Start starts the bot and blocks until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting Telegram bot")

	if err := b.registerCommands(); err != nil {
		b.logger.Warnf("Failed to register bot commands: %v", err)
	}

	go func() {
		<-ctx.Done()
		b.logger.Info("Stopping Telegram bot")
		b.bot.Stop()
	}()

	b.bot.Start()
	return nil
}

// registerCommands publishes the slash command menu
func (b *Bot) registerCommands() error {
	return b.bot.SetCommands([]telebot.Command{
		{Text: strings.TrimPrefix(commands.Start, "/"), Description: "Open the main menu"},
		{Text: strings.TrimPrefix(commands.Link, "/"), Description: "Link your account: /link email password"},
	})
}

// setupMiddleware sets up the bot middleware
func (b *Bot) setupMiddleware() {
	b.bot.Use(func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			// Message text may carry credentials
			b.logger.Debugf("Received message from %d", c.Sender().ID)
			return next(c)
		}
	})

	b.bot.Handle(telebot.OnText, b.handleUpdate)
	b.bot.Handle(telebot.OnCallback, b.handleUpdate)
	b.bot.Handle(commands.Start, b.handleUpdate)
	b.bot.Handle(commands.Link, b.handleUpdate)
}

// handleUpdate routes an update to the handler of the sender's access type
func (b *Bot) handleUpdate(c telebot.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout*time.Second)
	defer cancel()

	telegramID := c.Sender().ID

	accessType, user, err := b.permCtrl.Resolve(ctx, telegramID)
	if err != nil {
		b.logger.Errorf("Failed to resolve access for %d: %v", telegramID, err)
		return c.Send("An error occurred. Please try again later.")
	}

	handler, ok := b.handlers[accessType]
	if !ok {
		b.logger.Warnf("No handler for access type %d", accessType)
		return c.Send("You don't have permission to use this bot.")
	}

	return handler.Handle(ctx, c, user)
}

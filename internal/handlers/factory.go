package handlers

import (
	"context"

	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"datashare/internal/config"
	"datashare/internal/models"
	"datashare/internal/permissions"
)

// MessageHandler defines the interface for handling Telegram messages
type MessageHandler interface {
	Handle(ctx context.Context, c telebot.Context, user *models.User) error
	CanHandle(accessType permissions.AccessType) bool
}

// HandlerFactory creates message handlers
type HandlerFactory struct {
	svc    Services
	config *config.Config
	logger *logrus.Logger
}

// NewHandlerFactory creates a new handler factory
func NewHandlerFactory(svc Services, config *config.Config, logger *logrus.Logger) *HandlerFactory {
	return &HandlerFactory{
		svc:    svc,
		config: config,
		logger: logger,
	}
}

// CreateHandler creates a message handler for the given access type
func (f *HandlerFactory) CreateHandler(accessType permissions.AccessType) MessageHandler {
	switch accessType {
	case permissions.Admin:
		return NewAdminHandler(f.svc, f.config, f.logger)
	case permissions.Member:
		return NewMemberHandler(f.svc, f.config, f.logger)
	case permissions.Guest:
		return NewGuestHandler(f.svc, f.config, f.logger)
	default:
		f.logger.Warnf("Unknown access type: %d", accessType)
		return NewGuestHandler(f.svc, f.config, f.logger)
	}
}

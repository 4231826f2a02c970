package handlers

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"datashare/internal/commands"
	"datashare/internal/config"
	apperrors "datashare/internal/errors"
	"datashare/internal/helpers"
	"datashare/internal/models"
	"datashare/internal/permissions"
	"datashare/internal/pricing"
	"datashare/internal/services"
)

// Services groups the application services used by the bot handlers
type Services struct {
	Accounts   *services.AccountService
	Sessions   *services.SessionService
	Settlement *services.SettlementService
	Purchases  *services.PurchaseService
	Admin      *services.AdminService
	State      *services.UserStateService
	QR         *services.QRService
	Prices     *pricing.Table
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	svc    Services
	config *config.Config
	logger *logrus.Logger
}

// NewBaseHandler creates a new base handler
func NewBaseHandler(svc Services, config *config.Config, logger *logrus.Logger) BaseHandler {
	return BaseHandler{
		svc:    svc,
		config: config,
		logger: logger,
	}
}

// CanHandle checks if the handler can handle the given access type
func (h *BaseHandler) CanHandle(accessType permissions.AccessType) bool {
	// Base handler can't handle any access type directly
	return false
}

// sendTextMessage sends a text message with optional markup
func (h *BaseHandler) sendTextMessage(c telebot.Context, text string, markup *telebot.ReplyMarkup) error {
	opts := &telebot.SendOptions{
		ParseMode: telebot.ModeHTML,
	}

	if markup != nil {
		opts.ReplyMarkup = markup
	}

	err := c.Send(text, opts)
	if err != nil {
		h.logger.Errorf("Failed to send message: %v", err)
	}
	return err
}

// sendQRCode sends a QR code for the given text
func (h *BaseHandler) sendQRCode(c telebot.Context, text string) error {
	// Generate QR code
	qrBytes, err := h.svc.QR.GenerateQR(text)
	if err != nil {
		h.logger.Errorf("Failed to generate QR code: %v", err)
		return err
	}

	photo := &telebot.Photo{File: telebot.FromReader(bytes.NewReader(qrBytes))}

	err = c.Send(photo)
	if err != nil {
		h.logger.Errorf("Failed to send QR code: %v", err)
	}
	return err
}

// sendError reports a failed operation to the user
func (h *BaseHandler) sendError(c telebot.Context, err error, markup *telebot.ReplyMarkup) error {
	return h.sendTextMessage(c, userMessage(err, h.config), markup)
}

// userMessage converts a service error into a message safe to show to users
func userMessage(err error, cfg *config.Config) string {
	var (
		validationErr   *apperrors.ValidationError
		notFoundErr     *apperrors.NotFoundError
		insufficientErr *apperrors.InsufficientBalanceError
		regionErr       *apperrors.RegionError
		authErr         *apperrors.AuthenticationError
		conflictErr     *apperrors.ConflictError
		paymentErr      *apperrors.PaymentGatewayError
	)

	switch {
	case errors.As(err, &validationErr):
		return fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Message)
	case errors.As(err, &notFoundErr):
		if notFoundErr.Resource == "session" {
			return "Invalid connection code or session."
		}
		return "Not found."
	case errors.As(err, &insufficientErr):
		return "Insufficient tokens. Please purchase tokens first."
	case errors.As(err, &regionErr):
		if cfg != nil && cfg.ComingSoonMessage != "" {
			return cfg.ComingSoonMessage
		}
		return "Service not available in your country yet."
	case errors.As(err, &authErr):
		return "Invalid email or password."
	case errors.As(err, &conflictErr):
		return conflictErr.Message
	case errors.As(err, &paymentErr):
		return "Payment failed. You have not been charged."
	default:
		return "Something went wrong. Please try again later."
	}
}

// createMainKeyboard creates the main keyboard for the given access type
func (h *BaseHandler) createMainKeyboard(accessType permissions.AccessType) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard: true,
	}

	memberRows := []telebot.Row{
		{
			telebot.Btn{Text: commands.Balance},
			telebot.Btn{Text: commands.BuyTokens},
		},
		{
			telebot.Btn{Text: commands.JoinSession},
			telebot.Btn{Text: commands.MySessions},
		},
		{
			telebot.Btn{Text: commands.StartSharing},
			telebot.Btn{Text: commands.StopSharing},
		},
		{
			telebot.Btn{Text: commands.Transactions},
		},
	}

	var rows []telebot.Row

	switch accessType {
	case permissions.Admin:
		rows = append(memberRows, telebot.Row{
			telebot.Btn{Text: commands.PlatformStats},
			telebot.Btn{Text: commands.TopSharers},
		})
	case permissions.Member:
		rows = memberRows
	default:
		rows = []telebot.Row{
			{
				telebot.Btn{Text: commands.LinkAccount},
			},
			{
				telebot.Btn{Text: commands.About},
				telebot.Btn{Text: commands.Help},
			},
		}
	}

	markup.Reply(rows...)
	return markup
}

// createReturnKeyboard creates a keyboard with a return button
func (h *BaseHandler) createReturnKeyboard() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard: true,
	}

	markup.Reply(
		telebot.Row{
			telebot.Btn{Text: commands.ReturnToMainMenu},
		},
	)

	return markup
}

// createConfirmKeyboard creates a keyboard with confirm/cancel buttons
func (h *BaseHandler) createConfirmKeyboard() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard: true,
	}

	markup.Reply(
		telebot.Row{
			telebot.Btn{Text: commands.Confirm},
			telebot.Btn{Text: commands.Cancel},
		},
	)

	return markup
}

// createPackageKeyboard creates a keyboard with one button per token package
func (h *BaseHandler) createPackageKeyboard(packages []pricing.Package) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard: true,
	}

	var rows []telebot.Row
	var row telebot.Row
	for _, pkg := range packages {
		row = append(row, telebot.Btn{Text: pkg.Name})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, telebot.Row{telebot.Btn{Text: commands.ReturnToMainMenu}})

	markup.Reply(rows...)
	return markup
}

// createSessionKeyboard creates a keyboard with one button per session
func (h *BaseHandler) createSessionKeyboard(sessions []models.SharingSession) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard: true,
	}

	var rows []telebot.Row
	for _, session := range sessions {
		rows = append(rows, telebot.Row{telebot.Btn{Text: session.SessionID}})
	}
	rows = append(rows, telebot.Row{telebot.Btn{Text: commands.ReturnToMainMenu}})

	markup.Reply(rows...)
	return markup
}

// formatSessions formats a titled session list
func formatSessions(title string, sessions []models.SharingSession) string {
	text := fmt.Sprintf("<b>%s:</b>\n", title)
	if len(sessions) == 0 {
		return text + "none\n"
	}
	for _, session := range sessions {
		text += helpers.FormatSessionLine(session)
	}
	return text
}

package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"datashare/internal/commands"
	"datashare/internal/config"
	"datashare/internal/models"
	"datashare/internal/permissions"
)

// GuestHandler handles Telegram users without a linked account
type GuestHandler struct {
	BaseHandler
	commandHandlers map[string]func(context.Context, telebot.Context) error
}

// NewGuestHandler creates a new guest handler
func NewGuestHandler(svc Services, config *config.Config, logger *logrus.Logger) *GuestHandler {
	handler := &GuestHandler{
		BaseHandler: NewBaseHandler(svc, config, logger),
	}

	handler.initializeCommands()
	return handler
}

// CanHandle checks if the handler can handle the given access type
func (h *GuestHandler) CanHandle(accessType permissions.AccessType) bool {
	return accessType == permissions.Guest
}

// Handle handles a message from Telegram
func (h *GuestHandler) Handle(ctx context.Context, c telebot.Context, _ *models.User) error {
	userID := c.Sender().ID

	userState, err := h.svc.State.GetState(userID)
	if err != nil {
		h.logger.Errorf("Failed to get user state: %v", err)
		return err
	}

	// Navigation always wins over a pending conversation
	if c.Text() == commands.ReturnToMainMenu || c.Text() == commands.Start {
		return h.handleStart(ctx, c)
	}

	switch userState.State {
	case models.Default:
		return h.handleDefaultState(ctx, c)
	case models.AwaitingLinkEmail:
		return h.processLinkEmail(ctx, c)
	case models.AwaitingLinkPassword:
		return h.processLinkPassword(ctx, c, userState)
	default:
		h.logger.Warnf("Unknown state: %d", userState.State)
		return h.handleDefaultState(ctx, c)
	}
}

// initializeCommands initializes the command handlers
func (h *GuestHandler) initializeCommands() {
	h.commandHandlers = map[string]func(context.Context, telebot.Context) error{
		commands.Start:            h.handleStart,
		commands.LinkAccount:      h.handleLinkAccount,
		commands.About:            h.handleAbout,
		commands.Help:             h.handleHelp,
		commands.ReturnToMainMenu: h.handleStart,
	}
}

// handleDefaultState handles the default state
func (h *GuestHandler) handleDefaultState(ctx context.Context, c telebot.Context) error {
	text := strings.TrimSpace(c.Text())

	// One-shot form: /link email password
	if strings.HasPrefix(text, commands.Link) {
		return h.handleLinkCommand(ctx, c, strings.Fields(strings.TrimPrefix(text, commands.Link)))
	}

	if handler, ok := h.commandHandlers[text]; ok {
		return handler(ctx, c)
	}

	return h.handleStart(ctx, c)
}

// handleStart handles the /start command
func (h *GuestHandler) handleStart(ctx context.Context, c telebot.Context) error {
	h.svc.State.ClearState(c.Sender().ID)

	markup := h.createMainKeyboard(permissions.Guest)
	return h.sendTextMessage(c, "Welcome to DataShare!\n\nLink your DataShare account to buy tokens, share your hotspot and connect to sharers.", markup)
}

// handleLinkAccount starts the account linking conversation
func (h *GuestHandler) handleLinkAccount(ctx context.Context, c telebot.Context) error {
	if err := h.svc.State.WithConversationState(c.Sender().ID, models.AwaitingLinkEmail); err != nil {
		h.logger.Errorf("Failed to set state: %v", err)
		return err
	}

	return h.sendTextMessage(c, "Please enter the email of your DataShare account:", h.createReturnKeyboard())
}

// processLinkEmail stores the email and asks for the password
func (h *GuestHandler) processLinkEmail(ctx context.Context, c telebot.Context) error {
	email := strings.TrimSpace(c.Text())
	if email == "" {
		return h.sendTextMessage(c, "Please enter a valid email:", h.createReturnKeyboard())
	}

	h.svc.State.WithPayload(c.Sender().ID, models.AwaitingLinkPassword, email)
	return h.sendTextMessage(c, "Now enter your password:", h.createReturnKeyboard())
}

// processLinkPassword completes the account linking conversation
func (h *GuestHandler) processLinkPassword(ctx context.Context, c telebot.Context, state *models.UserState) error {
	if state.Payload == nil {
		return h.handleLinkAccount(ctx, c)
	}

	// The password should not stay in the chat history
	if err := c.Delete(); err != nil {
		h.logger.Debugf("Failed to delete password message: %v", err)
	}

	return h.link(ctx, c, *state.Payload, c.Text())
}

// handleLinkCommand links an account from the one-shot /link command
func (h *GuestHandler) handleLinkCommand(ctx context.Context, c telebot.Context, args []string) error {
	if len(args) != 2 {
		return h.sendTextMessage(c, fmt.Sprintf("Usage: %s email password", commands.Link), nil)
	}

	if err := c.Delete(); err != nil {
		h.logger.Debugf("Failed to delete link message: %v", err)
	}

	return h.link(ctx, c, args[0], args[1])
}

func (h *GuestHandler) link(ctx context.Context, c telebot.Context, email, password string) error {
	telegramID := c.Sender().ID

	user, err := h.svc.Accounts.LinkTelegram(ctx, telegramID, email, password)
	if err != nil {
		h.svc.State.ClearState(telegramID)
		return h.sendError(c, err, h.createMainKeyboard(permissions.Guest))
	}

	h.svc.State.ClearState(telegramID)
	markup := h.createMainKeyboard(permissions.AccessForRole(user))
	return h.sendTextMessage(c, fmt.Sprintf("Account %s linked successfully!", user.Email), markup)
}

// handleAbout handles the About command
func (h *GuestHandler) handleAbout(ctx context.Context, c telebot.Context) error {
	aboutText := `<b>DataShare</b>

Share your mobile data and earn, or buy data from sharers nearby.

<b>Features:</b>
• Prepaid tokens: 1 token = 1 GB
• Share your hotspot and earn per GB used
• Connect to a sharer with a connection code or QR

Register on the website, then link your account here.`

	return h.sendTextMessage(c, aboutText, h.createReturnKeyboard())
}

// handleHelp handles the Help command
func (h *GuestHandler) handleHelp(ctx context.Context, c telebot.Context) error {
	helpText := `<b>DataShare Bot Help</b>

<b>Available Commands:</b>
• <b>/start</b> - Show the main menu
• <b>/link email password</b> - Link your account in one step
• <b>Link Account</b> - Link your account step by step
• <b>About</b> - Show information about DataShare`

	return h.sendTextMessage(c, helpText, h.createReturnKeyboard())
}

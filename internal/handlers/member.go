package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"datashare/internal/commands"
	"datashare/internal/config"
	"datashare/internal/helpers"
	"datashare/internal/models"
	"datashare/internal/permissions"
)

type memberCommand func(context.Context, telebot.Context, *models.User) error

// MemberHandler handles commands of linked accounts
type MemberHandler struct {
	BaseHandler
	commandHandlers map[string]memberCommand
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(svc Services, config *config.Config, logger *logrus.Logger) *MemberHandler {
	handler := &MemberHandler{
		BaseHandler: NewBaseHandler(svc, config, logger),
	}

	handler.initializeCommands()
	return handler
}

// CanHandle checks if the handler can handle the given access type
func (h *MemberHandler) CanHandle(accessType permissions.AccessType) bool {
	return accessType == permissions.Member
}

// Handle handles a message from Telegram
func (h *MemberHandler) Handle(ctx context.Context, c telebot.Context, user *models.User) error {
	userID := c.Sender().ID

	state, err := h.svc.State.GetState(userID)
	if err != nil {
		h.logger.Errorf("Failed to get user state: %v", err)
		return err
	}

	text := strings.TrimSpace(c.Text())
	if text == commands.ReturnToMainMenu || text == commands.Start || text == commands.Cancel {
		return h.handleStart(ctx, c, user)
	}

	switch state.State {
	case models.Default:
		return h.handleDefaultState(ctx, c, user)
	case models.AwaitingPackage:
		return h.processPackage(ctx, c, user)
	case models.AwaitingConfirmPurchase:
		return h.processConfirmPurchase(ctx, c, user, state)
	case models.AwaitingConnectionToken:
		return h.processConnectionToken(ctx, c, user)
	case models.AwaitingStopSelection:
		return h.processStopSelection(ctx, c, user)
	default:
		h.logger.Warnf("Unknown state: %d", state.State)
		return h.handleDefaultState(ctx, c, user)
	}
}

// initializeCommands initializes the command handlers
func (h *MemberHandler) initializeCommands() {
	h.commandHandlers = map[string]memberCommand{
		commands.Start:            h.handleStart,
		commands.Balance:          h.handleBalance,
		commands.BuyTokens:        h.handleBuyTokens,
		commands.Transactions:     h.handleTransactions,
		commands.StartSharing:     h.handleStartSharing,
		commands.StopSharing:      h.handleStopSharing,
		commands.JoinSession:      h.handleJoinSession,
		commands.MySessions:       h.handleMySessions,
		commands.ReturnToMainMenu: h.handleStart,
	}
}

// handleDefaultState handles the default state
func (h *MemberHandler) handleDefaultState(ctx context.Context, c telebot.Context, user *models.User) error {
	if handler, ok := h.commandHandlers[strings.TrimSpace(c.Text())]; ok {
		return handler(ctx, c, user)
	}

	return h.handleStart(ctx, c, user)
}

// handleStart handles the /start command
func (h *MemberHandler) handleStart(ctx context.Context, c telebot.Context, user *models.User) error {
	h.svc.State.ClearState(c.Sender().ID)

	markup := h.createMainKeyboard(permissions.AccessForRole(user))
	return h.sendTextMessage(c, fmt.Sprintf("Welcome back, %s!", user.Email), markup)
}

// handleBalance shows the token balance and earnings
func (h *MemberHandler) handleBalance(ctx context.Context, c telebot.Context, user *models.User) error {
	summary, err := h.svc.Accounts.Balance(ctx, user.ID)
	if err != nil {
		h.logger.Errorf("Failed to get balance of user %d: %v", user.ID, err)
		return h.sendError(c, err, nil)
	}

	return h.sendTextMessage(c, helpers.FormatBalance(summary), h.createReturnKeyboard())
}

// handleTransactions shows the latest purchases
func (h *MemberHandler) handleTransactions(ctx context.Context, c telebot.Context, user *models.User) error {
	txns, err := h.svc.Accounts.ListTransactions(ctx, user.ID)
	if err != nil {
		h.logger.Errorf("Failed to list transactions of user %d: %v", user.ID, err)
		return h.sendError(c, err, nil)
	}

	return h.sendTextMessage(c, helpers.FormatTransactions(txns), h.createReturnKeyboard())
}

// handleBuyTokens shows the package keyboard
func (h *MemberHandler) handleBuyTokens(ctx context.Context, c telebot.Context, user *models.User) error {
	if err := h.svc.State.WithConversationState(c.Sender().ID, models.AwaitingPackage); err != nil {
		h.logger.Errorf("Failed to set state: %v", err)
		return err
	}

	packages := h.svc.Prices.Packages()
	return h.sendTextMessage(c, helpers.FormatPackages(packages)+"\nSelect a package:", h.createPackageKeyboard(packages))
}

// processPackage asks for confirmation of the selected package
func (h *MemberHandler) processPackage(ctx context.Context, c telebot.Context, user *models.User) error {
	pkg, err := h.svc.Prices.Package(c.Text())
	if err != nil {
		return h.sendError(c, err, h.createPackageKeyboard(h.svc.Prices.Packages()))
	}

	h.svc.State.WithPayload(c.Sender().ID, models.AwaitingConfirmPurchase, pkg.Name)
	return h.sendTextMessage(c, fmt.Sprintf("Buy %s for %s?", pkg.Name, helpers.FormatMoney(pkg.Price)), h.createConfirmKeyboard())
}

// processConfirmPurchase buys the package stored in the conversation state
func (h *MemberHandler) processConfirmPurchase(ctx context.Context, c telebot.Context, user *models.User, state *models.UserState) error {
	if c.Text() != commands.Confirm || state.Payload == nil {
		return h.handleStart(ctx, c, user)
	}

	h.svc.State.ClearState(c.Sender().ID)
	markup := h.createMainKeyboard(permissions.AccessForRole(user))

	result, err := h.svc.Purchases.PurchaseTokens(ctx, user.ID, *state.Payload)
	if err != nil {
		return h.sendError(c, err, markup)
	}

	return h.sendTextMessage(c, fmt.Sprintf("Successfully purchased %s package!\nReference: <code>%s</code>", result.Package.Name, result.Transaction.Reference), markup)
}

// handleStartSharing opens a new session and sends its connection code
func (h *MemberHandler) handleStartSharing(ctx context.Context, c telebot.Context, user *models.User) error {
	session, err := h.svc.Sessions.StartSharing(ctx, user.ID)
	if err != nil {
		return h.sendError(c, err, nil)
	}

	rate := h.svc.Prices.Rates().SharerRatePerGB
	text := fmt.Sprintf("Sharing started!\n\nSession: <code>%s</code>\nConnection code: <code>%s</code>\n\nYou earn %s per GB used.",
		session.SessionID, session.ConnectionToken, helpers.FormatMoney(rate))
	if err := h.sendTextMessage(c, text, h.createReturnKeyboard()); err != nil {
		return err
	}

	return h.sendQRCode(c, session.ConnectionToken)
}

// handleJoinSession asks for a connection code
func (h *MemberHandler) handleJoinSession(ctx context.Context, c telebot.Context, user *models.User) error {
	if err := h.svc.State.WithConversationState(c.Sender().ID, models.AwaitingConnectionToken); err != nil {
		h.logger.Errorf("Failed to set state: %v", err)
		return err
	}

	return h.sendTextMessage(c, "Please enter the connection code of the sharer:", h.createReturnKeyboard())
}

// processConnectionToken connects the buyer to a sharer
func (h *MemberHandler) processConnectionToken(ctx context.Context, c telebot.Context, user *models.User) error {
	h.svc.State.ClearState(c.Sender().ID)
	markup := h.createMainKeyboard(permissions.AccessForRole(user))

	session, err := h.svc.Sessions.JoinSession(ctx, strings.TrimSpace(c.Text()), user.ID)
	if err != nil {
		return h.sendError(c, err, markup)
	}

	return h.sendTextMessage(c, fmt.Sprintf("Connected successfully to session <code>%s</code>!", helpers.ShortID(session.SessionID)), markup)
}

// handleMySessions lists hosted and joined sessions
func (h *MemberHandler) handleMySessions(ctx context.Context, c telebot.Context, user *models.User) error {
	hosted, err := h.svc.Sessions.ListSharerSessions(ctx, user.ID, false)
	if err != nil {
		return h.sendError(c, err, nil)
	}

	joined, err := h.svc.Sessions.ListBuyerSessions(ctx, user.ID)
	if err != nil {
		return h.sendError(c, err, nil)
	}

	text := formatSessions("Sharing", hosted) + "\n" + formatSessions("Connected", joined)
	return h.sendTextMessage(c, text, h.createReturnKeyboard())
}

// handleStopSharing shows the active hosted sessions to pick from
func (h *MemberHandler) handleStopSharing(ctx context.Context, c telebot.Context, user *models.User) error {
	active, err := h.svc.Sessions.ListSharerSessions(ctx, user.ID, true)
	if err != nil {
		return h.sendError(c, err, nil)
	}

	if len(active) == 0 {
		return h.sendTextMessage(c, "You have no active sessions.", h.createReturnKeyboard())
	}

	if err := h.svc.State.WithConversationState(c.Sender().ID, models.AwaitingStopSelection); err != nil {
		h.logger.Errorf("Failed to set state: %v", err)
		return err
	}

	return h.sendTextMessage(c, "Select the session to stop:", h.createSessionKeyboard(active))
}

// processStopSelection stops the selected session
func (h *MemberHandler) processStopSelection(ctx context.Context, c telebot.Context, user *models.User) error {
	h.svc.State.ClearState(c.Sender().ID)
	markup := h.createMainKeyboard(permissions.AccessForRole(user))

	session, err := h.svc.Settlement.StopSession(ctx, strings.TrimSpace(c.Text()), user.ID)
	if err != nil {
		return h.sendError(c, err, markup)
	}

	return h.sendTextMessage(c, fmt.Sprintf("Session <code>%s</code> stopped. Data shared: %s",
		helpers.ShortID(session.SessionID), helpers.FormatGB(session.DataUsedGB())), markup)
}

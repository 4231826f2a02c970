package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"datashare/internal/commands"
	"datashare/internal/config"
	"datashare/internal/helpers"
	"datashare/internal/models"
	"datashare/internal/permissions"
)

// AdminHandler handles admin commands on top of the member commands
type AdminHandler struct {
	*MemberHandler
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(svc Services, config *config.Config, logger *logrus.Logger) *AdminHandler {
	handler := &AdminHandler{
		MemberHandler: NewMemberHandler(svc, config, logger),
	}

	handler.initializeCommands()
	return handler
}

// CanHandle checks if the handler can handle the given access type
func (h *AdminHandler) CanHandle(accessType permissions.AccessType) bool {
	return accessType == permissions.Admin
}

// Handle handles a message from Telegram
func (h *AdminHandler) Handle(ctx context.Context, c telebot.Context, user *models.User) error {
	if !user.IsAdmin() {
		h.logger.Warnf("User %d reached the admin handler without the admin role", user.ID)
		return h.sendTextMessage(c, "You don't have permission to use admin commands.", nil)
	}

	return h.MemberHandler.Handle(ctx, c, user)
}

// initializeCommands adds the admin commands to the member commands
func (h *AdminHandler) initializeCommands() {
	h.commandHandlers[commands.PlatformStats] = h.handlePlatformStats
	h.commandHandlers[commands.TopSharers] = h.handleTopSharers
}

// handlePlatformStats shows the platform earnings report
func (h *AdminHandler) handlePlatformStats(ctx context.Context, c telebot.Context, user *models.User) error {
	overview, err := h.svc.Admin.Overview(ctx)
	if err != nil {
		h.logger.Errorf("Failed to build platform overview: %v", err)
		return h.sendError(c, err, nil)
	}

	return h.sendTextMessage(c, helpers.FormatOverviewReport(overview), h.createReturnKeyboard())
}

// handleTopSharers shows the sharer leaderboard, cycling the sort order on each request
func (h *AdminHandler) handleTopSharers(ctx context.Context, c telebot.Context, user *models.User) error {
	sortType := h.nextSortType(c.Sender().ID)

	stats, err := h.svc.Admin.TopSharers(ctx, sortType)
	if err != nil {
		h.logger.Errorf("Failed to list top sharers: %v", err)
		return h.sendError(c, err, nil)
	}

	return h.sendTextMessage(c, helpers.FormatSharerBoard(stats, sortType), h.createMainKeyboard(permissions.Admin))
}

// nextSortType reads the last sort order from the conversation payload and advances it
func (h *AdminHandler) nextSortType(telegramID int64) models.SortType {
	sortType := models.SortByEarnings

	state, err := h.svc.State.GetState(telegramID)
	if err == nil && state.Payload != nil {
		if raw, ok := strings.CutPrefix(*state.Payload, "sort:"); ok {
			if last, err := strconv.Atoi(raw); err == nil {
				sortType = models.SortType(last).Next()
			}
		}
	}

	h.svc.State.WithPayload(telegramID, models.Default, "sort:"+strconv.Itoa(int(sortType)))
	return sortType
}

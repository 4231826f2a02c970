package handlers

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"datashare/internal/commands"
	"datashare/internal/config"
	"datashare/internal/models"
	"datashare/internal/permissions"
	"datashare/internal/services"
	"datashare/internal/store"
	"datashare/internal/testutil"
)

// fakeContext records what the handlers send back
type fakeContext struct {
	telebot.Context

	sender  *telebot.User
	text    string
	sent    []interface{}
	deleted bool
}

func (f *fakeContext) Sender() *telebot.User { return f.sender }

func (f *fakeContext) Text() string { return f.text }

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func (f *fakeContext) Delete() error {
	f.deleted = true
	return nil
}

// lastText returns the last text message sent
func (f *fakeContext) lastText() string {
	for i := len(f.sent) - 1; i >= 0; i-- {
		if s, ok := f.sent[i].(string); ok {
			return s
		}
	}
	return ""
}

type harness struct {
	store   *store.Store
	svc     Services
	factory *HandlerFactory
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := testutil.Logger()
	st := testutil.NewStore(t)
	prices := testutil.PriceTable(t)
	qr := services.NewQRService(logger)
	accounts := services.NewAccountService(st, services.NewTextValidator(logger), []string{"Zimbabwe"}, logger)

	svc := Services{
		Accounts:   accounts,
		Sessions:   services.NewSessionService(st, accounts, qr, logger),
		Settlement: services.NewSettlementService(st, prices, logger),
		Purchases:  services.NewPurchaseService(st, prices, services.NewSimulatedGateway(logger), "USD", logger),
		Admin:      services.NewAdminService(st, logger),
		State:      services.NewUserStateService(logger),
		QR:         qr,
		Prices:     prices,
	}

	cfg := &config.Config{ComingSoonMessage: "Coming soon to your country!"}
	return &harness{store: st, svc: svc, factory: NewHandlerFactory(svc, cfg, logger)}
}

// say delivers one message from telegramID to the handler matching user
func (h *harness) say(t *testing.T, telegramID int64, user *models.User, text string) *fakeContext {
	t.Helper()

	c := &fakeContext{sender: &telebot.User{ID: telegramID}, text: text}
	handler := h.factory.CreateHandler(permissions.AccessForRole(user))
	require.NoError(t, handler.Handle(context.Background(), c, user))
	return c
}

func TestGuestLinksAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Accounts.Register(ctx, services.RegisterInput{Email: "sharer@example.com", Password: "password1", Country: "Zimbabwe"})
	require.NoError(t, err)

	c := h.say(t, 100, nil, commands.LinkAccount)
	assert.Contains(t, c.lastText(), "email")

	h.say(t, 100, nil, "sharer@example.com")
	c = h.say(t, 100, nil, "password1")
	assert.True(t, c.deleted)
	assert.Contains(t, c.lastText(), "linked successfully")

	user, err := h.svc.Accounts.GetByTelegramID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "sharer@example.com", user.Email)
}

func TestGuestLinkRejectsBadPassword(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Accounts.Register(context.Background(), services.RegisterInput{Email: "a@example.com", Password: "password1", Country: "Zimbabwe"})
	require.NoError(t, err)

	c := h.say(t, 101, nil, "/link a@example.com wrongpass1")
	assert.Equal(t, "Invalid email or password.", c.lastText())

	c = h.say(t, 101, nil, "/link a@example.com")
	assert.Contains(t, c.lastText(), "Usage")
}

func TestMemberBuysTokens(t *testing.T) {
	h := newHarness(t)
	user := testutil.CreateUser(t, h.store, "buyer@example.com", 0)

	c := h.say(t, 200, user, commands.BuyTokens)
	assert.Contains(t, c.lastText(), "5GB")

	c = h.say(t, 200, user, "7GB")
	assert.Contains(t, c.lastText(), "Invalid package")

	c = h.say(t, 200, user, "5GB")
	assert.Contains(t, c.lastText(), "$6.50")

	c = h.say(t, 200, user, commands.Confirm)
	assert.Contains(t, c.lastText(), "Successfully purchased 5GB")

	assert.True(t, testutil.ReloadUser(t, h.store, user.ID).Tokens.Equal(decimal.NewFromInt(5)))

	c = h.say(t, 200, user, commands.Balance)
	assert.Contains(t, c.lastText(), "5.00 GB")
}

func TestShareJoinAndStop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sharer := testutil.CreateUser(t, h.store, "sharer@example.com", 0)
	buyer := testutil.CreateUser(t, h.store, "buyer@example.com", 2)

	c := h.say(t, 300, sharer, commands.StartSharing)
	require.Len(t, c.sent, 2)
	assert.Contains(t, c.lastText(), "Sharing started")
	_, isPhoto := c.sent[1].(*telebot.Photo)
	assert.True(t, isPhoto)

	sessions, err := h.svc.Sessions.ListSharerSessions(ctx, sharer.ID, true)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	session := sessions[0]

	h.say(t, 301, buyer, commands.JoinSession)
	c = h.say(t, 301, buyer, "wrong-token")
	assert.Equal(t, "Invalid connection code or session.", c.lastText())

	h.say(t, 301, buyer, commands.JoinSession)
	c = h.say(t, 301, buyer, session.ConnectionToken)
	assert.Contains(t, c.lastText(), "Connected successfully")

	c = h.say(t, 301, buyer, commands.MySessions)
	assert.Contains(t, c.lastText(), "connected")

	c = h.say(t, 300, sharer, commands.StopSharing)
	assert.Contains(t, c.lastText(), "Select the session")

	c = h.say(t, 300, sharer, session.SessionID)
	assert.Contains(t, c.lastText(), "stopped")

	c = h.say(t, 300, sharer, commands.StopSharing)
	assert.Equal(t, "You have no active sessions.", c.lastText())
}

func TestAdminPlatformStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, h.store, "admin@example.com", 0)
	require.NoError(t, h.store.SetRole(ctx, admin.ID, models.RoleAdmin))
	admin = testutil.ReloadUser(t, h.store, admin.ID)

	c := h.say(t, 400, admin, commands.PlatformStats)
	assert.Contains(t, c.lastText(), "Platform Report")

	c = h.say(t, 400, admin, commands.TopSharers)
	assert.Contains(t, c.lastText(), models.SortByEarnings.GetSortName())
	c = h.say(t, 400, admin, commands.TopSharers)
	assert.Contains(t, c.lastText(), models.SortByEmail.GetSortName())

	member := testutil.CreateUser(t, h.store, "member@example.com", 0)
	c = h.say(t, 401, member, commands.PlatformStats)
	assert.Contains(t, c.lastText(), "Welcome back")
}

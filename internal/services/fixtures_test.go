package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"datashare/internal/models"
	"datashare/internal/store"
	"datashare/internal/testutil"
)

type fixture struct {
	store      *store.Store
	accounts   *AccountService
	sessions   *SessionService
	settlement *SettlementService
	purchases  *PurchaseService
	admin      *AdminService
	gateway    *recordingGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := testutil.Logger()
	st := testutil.NewStore(t)
	prices := testutil.PriceTable(t)
	gateway := &recordingGateway{SimulatedGateway: NewSimulatedGateway(logger)}
	accounts := NewAccountService(st, NewTextValidator(logger), []string{"Zimbabwe"}, logger)

	return &fixture{
		store:      st,
		accounts:   accounts,
		sessions:   NewSessionService(st, accounts, NewQRService(logger), logger),
		settlement: NewSettlementService(st, prices, logger),
		purchases:  NewPurchaseService(st, prices, gateway, "USD", logger),
		admin:      NewAdminService(st, logger),
		gateway:    gateway,
	}
}

// connectedSession starts a session for sharer and attaches buyer
func (f *fixture) connectedSession(t *testing.T, sharer, buyer *models.User) *models.SharingSession {
	t.Helper()

	session, err := f.sessions.StartSharing(context.Background(), sharer.ID)
	require.NoError(t, err)

	joined, err := f.sessions.JoinSession(context.Background(), session.ConnectionToken, buyer.ID)
	require.NoError(t, err)
	return joined
}

func (f *fixture) reloadSession(t *testing.T, sessionID string) *models.SharingSession {
	t.Helper()

	session, err := f.store.GetSession(context.Background(), sessionID, false)
	require.NoError(t, err)
	return session
}

func (f *fixture) earnings(t *testing.T) *models.AdminEarnings {
	t.Helper()

	earnings, err := f.store.GetAdminEarnings(context.Background(), false)
	require.NoError(t, err)
	return earnings
}

// recordingGateway wraps the simulated gateway and can be told to decline
type recordingGateway struct {
	*SimulatedGateway

	mu       sync.Mutex
	declined error
	charges  []models.PaymentRequest
	refunds  []string
}

func (g *recordingGateway) Charge(ctx context.Context, req models.PaymentRequest) (*models.PaymentReceipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.declined != nil {
		return nil, g.declined
	}
	g.charges = append(g.charges, req)
	return g.SimulatedGateway.Charge(ctx, req)
}

func (g *recordingGateway) Refund(ctx context.Context, reference string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.refunds = append(g.refunds, reference)
	return g.SimulatedGateway.Refund(ctx, reference)
}

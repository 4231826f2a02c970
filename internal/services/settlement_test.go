package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "datashare/internal/errors"
	"datashare/internal/testutil"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func TestReportUsageSettlesAllParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sharer := testutil.CreateUser(t, f.store, "sharer@example.com", 0)
	buyer := testutil.CreateUser(t, f.store, "buyer@example.com", 2)
	session := f.connectedSession(t, sharer, buyer)

	result, err := f.settlement.ReportUsage(ctx, session.SessionID, dec("1024"))
	require.NoError(t, err)
	assertDecimal(t, "1", result.DeltaGB)
	assert.False(t, result.Terminated)

	assertDecimal(t, "1", testutil.ReloadUser(t, f.store, buyer.ID).Tokens)
	assertDecimal(t, "0.3", testutil.ReloadUser(t, f.store, sharer.ID).Earnings)
	assertDecimal(t, "0.2", f.earnings(t).TotalEarnings)

	stored := f.reloadSession(t, session.SessionID)
	assert.True(t, stored.IsActive)
	assert.Nil(t, stored.EndedAt)
	assertDecimal(t, "1024", stored.DataUsedMB)
}

func TestReportUsageEndsSessionWhenBalanceExhausted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sharer := testutil.CreateUser(t, f.store, "sharer@example.com", 0)
	buyer := testutil.CreateUser(t, f.store, "buyer@example.com", 2)
	session := f.connectedSession(t, sharer, buyer)

	_, err := f.settlement.ReportUsage(ctx, session.SessionID, dec("1024"))
	require.NoError(t, err)

	result, err := f.settlement.ReportUsage(ctx, session.SessionID, dec("2048"))
	require.NoError(t, err)
	assert.True(t, result.Terminated)

	assertDecimal(t, "-1", testutil.ReloadUser(t, f.store, buyer.ID).Tokens)
	assertDecimal(t, "0.9", testutil.ReloadUser(t, f.store, sharer.ID).Earnings)
	assertDecimal(t, "0.6", f.earnings(t).TotalEarnings)

	stored := f.reloadSession(t, session.SessionID)
	assert.False(t, stored.IsActive)
	require.NotNil(t, stored.EndedAt)
	assertDecimal(t, "3072", stored.DataUsedMB)
}

func TestReportUsageExactExhaustionEndsSession(t *testing.T) {
	f := newFixture(t)

	sharer := testutil.CreateUser(t, f.store, "sharer@example.com", 0)
	buyer := testutil.CreateUser(t, f.store, "buyer@example.com", 1)
	session := f.connectedSession(t, sharer, buyer)

	result, err := f.settlement.ReportUsage(context.Background(), session.SessionID, dec("1024"))
	require.NoError(t, err)
	assert.True(t, result.Terminated)
	assertDecimal(t, "0", testutil.ReloadUser(t, f.store, buyer.ID).Tokens)
}

func TestReportUsageNeverResurrectsOrRestamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sharer := testutil.CreateUser(t, f.store, "sharer@example.com", 0)
	buyer := testutil.CreateUser(t, f.store, "buyer@example.com", 0.5)
	session := f.connectedSession(t, sharer, buyer)

	_, err := f.settlement.ReportUsage(ctx, session.SessionID, dec("1024"))
	require.NoError(t, err)
	first := f.reloadSession(t, session.SessionID)
	require.NotNil(t, first.EndedAt)

	f.settlement.now = func() time.Time { return first.EndedAt.Add(time.Hour) }
	result, err := f.settlement.ReportUsage(ctx, session.SessionID, dec("512"))
	require.NoError(t, err)
	assert.False(t, result.Terminated)

	second := f.reloadSession(t, session.SessionID)
	assert.False(t, second.IsActive)
	require.NotNil(t, second.EndedAt)
	assert.WithinDuration(t, *first.EndedAt, *second.EndedAt, time.Second)
	assertDecimal(t, "1536", second.DataUsedMB)
	assertDecimal(t, "-1", testutil.ReloadUser(t, f.store, buyer.ID).Tokens)
	assertDecimal(t, "0.45", testutil.ReloadUser(t, f.store, sharer.ID).Earnings)
}

func TestReportUsageWithoutBuyerPaysSharerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sharer := testutil.CreateUser(t, f.store, "sharer@example.com", 0)
	session, err := f.sessions.StartSharing(ctx, sharer.ID)
	require.NoError(t, err)

	result, err := f.settlement.ReportUsage(ctx, session.SessionID, dec("512"))
	require.NoError(t, err)
	assert.False(t, result.Terminated)

	assertDecimal(t, "0.15", testutil.ReloadUser(t, f.store, sharer.ID).Earnings)
	assertDecimal(t, "0.1", f.earnings(t).TotalEarnings)
	assert.True(t, f.reloadSession(t, session.SessionID).IsActive)
}

func TestReportUsageRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sharer := testutil.CreateUser(t, f.store, "sharer@example.com", 0)
	session, err := f.sessions.StartSharing(ctx, sharer.ID)
	require.NoError(t, err)

	_, err = f.settlement.ReportUsage(ctx, session.SessionID, dec("-1"))
	var validationErr *apperrors.ValidationError
	assert.True(t, errors.As(err, &validationErr))

	_, err = f.settlement.ReportUsage(ctx, "unknown-session", dec("10"))
	var notFound *apperrors.NotFoundError
	assert.True(t, errors.As(err, &notFound))

	assertDecimal(t, "0", f.reloadSession(t, session.SessionID).DataUsedMB)
}

func TestMalformedSessionIDIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sharer := testutil.CreateUser(t, f.store, "sharer@example.com", 0)

	for _, id := range []string{"", "bad id!", strings.Repeat("a", 65)} {
		var notFound *apperrors.NotFoundError

		_, err := f.settlement.ReportUsage(ctx, id, dec("10"))
		assert.True(t, errors.As(err, &notFound), "report %q: %v", id, err)

		_, err = f.settlement.StopSession(ctx, id, sharer.ID)
		assert.True(t, errors.As(err, &notFound), "stop %q: %v", id, err)

		_, err = f.sessions.GetForParticipant(ctx, id, sharer.ID)
		assert.True(t, errors.As(err, &notFound), "get %q: %v", id, err)

		_, err = f.sessions.JoinSession(ctx, id, sharer.ID)
		assert.True(t, errors.As(err, &notFound), "join %q: %v", id, err)
	}
}

func TestReportUsageRollsBackOnWriteFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sharer := testutil.CreateUser(t, f.store, "sharer@example.com", 0)
	buyer := testutil.CreateUser(t, f.store, "buyer@example.com", 2)
	session := f.connectedSession(t, sharer, buyer)

	testutil.FailUpdatesOn(t, f.store, "admin_earnings")

	_, err := f.settlement.ReportUsage(ctx, session.SessionID, dec("1024"))
	var persistenceErr *apperrors.PersistenceError
	require.True(t, errors.As(err, &persistenceErr), "got %v", err)

	assertDecimal(t, "2", testutil.ReloadUser(t, f.store, buyer.ID).Tokens)
	assertDecimal(t, "0", testutil.ReloadUser(t, f.store, sharer.ID).Earnings)
	assertDecimal(t, "0", f.reloadSession(t, session.SessionID).DataUsedMB)
}

func TestReportUsageRollsBackWhenAggregateLockFails(t *testing.T) {
	st, mock := newMockStore(t)
	svc := NewSettlementService(st, testutil.PriceTable(t), testutil.Logger())

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery("sharing_sessions")).WillReturnRows(mockSessionRows(true))
	mock.ExpectQuery(lockQuery("users")).WillReturnRows(mockUserRows())
	mock.ExpectQuery(lockQuery("admin_earnings")).WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	_, err := svc.ReportUsage(context.Background(), "sess", dec("1024"))
	var persistenceErr *apperrors.PersistenceError
	require.True(t, errors.As(err, &persistenceErr), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportUsageLocksBeforeWriting(t *testing.T) {
	st, mock := newMockStore(t)
	svc := NewSettlementService(st, testutil.PriceTable(t), testutil.Logger())

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery("sharing_sessions")).WillReturnRows(mockSessionRows(true))
	mock.ExpectQuery(lockQuery("users")).WillReturnRows(mockUserRows())
	mock.ExpectQuery(lockQuery("admin_earnings")).WillReturnRows(mockEarningsRows())
	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "admin_earnings" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "sharing_sessions" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.ReportUsage(context.Background(), "sess", dec("1024"))
	require.NoError(t, err)
	assertDecimal(t, "1", result.DeltaGB)
	assertDecimal(t, "1024", result.Session.DataUsedMB)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConcurrentUsageReportsSerialize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sharer := testutil.CreateUser(t, f.store, "sharer@example.com", 0)
	buyer := testutil.CreateUser(t, f.store, "buyer@example.com", 100)
	session := f.connectedSession(t, sharer, buyer)

	otherSharer := testutil.CreateUser(t, f.store, "other@example.com", 0)
	other, err := f.sessions.StartSharing(ctx, otherSharer.ID)
	require.NoError(t, err)

	const reports = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*reports)
	for i := 0; i < reports; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.settlement.ReportUsage(ctx, session.SessionID, dec("512"))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.settlement.ReportUsage(ctx, other.SessionID, dec("1024"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	assertDecimal(t, "90", testutil.ReloadUser(t, f.store, buyer.ID).Tokens)
	assertDecimal(t, "3", testutil.ReloadUser(t, f.store, sharer.ID).Earnings)
	assertDecimal(t, "6", testutil.ReloadUser(t, f.store, otherSharer.ID).Earnings)
	assertDecimal(t, "10240", f.reloadSession(t, session.SessionID).DataUsedMB)
	// 10 GB + 20 GB at the platform rate
	assertDecimal(t, "6", f.earnings(t).TotalEarnings)
}

func TestStopSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sharer := testutil.CreateUser(t, f.store, "sharer@example.com", 0)
	stranger := testutil.CreateUser(t, f.store, "stranger@example.com", 0)
	session, err := f.sessions.StartSharing(ctx, sharer.ID)
	require.NoError(t, err)

	_, err = f.settlement.StopSession(ctx, session.SessionID, stranger.ID)
	var notFound *apperrors.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.True(t, f.reloadSession(t, session.SessionID).IsActive)

	stopped, err := f.settlement.StopSession(ctx, session.SessionID, sharer.ID)
	require.NoError(t, err)
	assert.False(t, stopped.IsActive)
	require.NotNil(t, stopped.EndedAt)

	f.settlement.now = func() time.Time { return stopped.EndedAt.Add(time.Hour) }
	again, err := f.settlement.StopSession(ctx, session.SessionID, sharer.ID)
	require.NoError(t, err)
	assert.False(t, again.IsActive)
	require.NotNil(t, again.EndedAt)
	assert.WithinDuration(t, *stopped.EndedAt, *again.EndedAt, time.Second)
}

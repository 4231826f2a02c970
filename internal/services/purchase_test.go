package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "datashare/internal/errors"
	"datashare/internal/models"
	"datashare/internal/testutil"
)

func TestPurchaseTokensCreditsBuyerAndBooksCommission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	buyer := testutil.CreateUser(t, f.store, "buyer@example.com", 0)
	before := f.earnings(t)

	result, err := f.purchases.PurchaseTokens(ctx, buyer.ID, "5gb")
	require.NoError(t, err)
	assert.Equal(t, "5GB", result.Package.Name)
	assertDecimal(t, "5", result.Transaction.Tokens)
	assertDecimal(t, "6.5", result.Transaction.Amount)
	assert.Equal(t, models.TransactionPurchase, result.Transaction.Type)
	assert.Equal(t, models.TransactionCompleted, result.Transaction.Status)
	assert.NotEmpty(t, result.Transaction.Reference)

	assertDecimal(t, "5", testutil.ReloadUser(t, f.store, buyer.ID).Tokens)

	after := f.earnings(t)
	assertDecimal(t, "2.6", after.TotalEarnings)
	assert.Equal(t, before.TotalTransactions+1, after.TotalTransactions)
	assert.False(t, after.LastUpdated.Before(before.LastUpdated))

	txns, err := f.accounts.ListTransactions(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, result.Transaction.Reference, txns[0].Reference)

	require.Len(t, f.gateway.charges, 1)
	assert.Equal(t, txns[0].Reference, f.gateway.charges[0].Reference)
	assert.Empty(t, f.gateway.refunds)
}

func TestPurchaseUnlimitedPackage(t *testing.T) {
	f := newFixture(t)

	buyer := testutil.CreateUser(t, f.store, "buyer@example.com", 1)

	result, err := f.purchases.PurchaseTokens(context.Background(), buyer.ID, "UNLIMITED")
	require.NoError(t, err)
	assert.True(t, result.Package.Unlimited)
	assertDecimal(t, "1000000", testutil.ReloadUser(t, f.store, buyer.ID).Tokens)
	assertDecimal(t, "5.2", f.earnings(t).TotalEarnings)
}

func TestPurchaseUnknownPackage(t *testing.T) {
	f := newFixture(t)

	buyer := testutil.CreateUser(t, f.store, "buyer@example.com", 1)

	_, err := f.purchases.PurchaseTokens(context.Background(), buyer.ID, "3GB")
	var validationErr *apperrors.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "package", validationErr.Field)

	assert.Empty(t, f.gateway.charges)
	assertDecimal(t, "1", testutil.ReloadUser(t, f.store, buyer.ID).Tokens)
}

func TestPurchaseUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.purchases.PurchaseTokens(context.Background(), 999, "1GB")
	var notFound *apperrors.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Empty(t, f.gateway.charges)
}

func TestPurchaseDeclinedWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	buyer := testutil.CreateUser(t, f.store, "buyer@example.com", 0)
	f.gateway.declined = &apperrors.PaymentGatewayError{Operation: "charge", Status: 402, Message: "declined"}

	_, err := f.purchases.PurchaseTokens(ctx, buyer.ID, "1GB")
	var gwErr *apperrors.PaymentGatewayError
	require.True(t, errors.As(err, &gwErr))

	assertDecimal(t, "0", testutil.ReloadUser(t, f.store, buyer.ID).Tokens)
	assertDecimal(t, "0", f.earnings(t).TotalEarnings)
	assert.Equal(t, int64(0), f.earnings(t).TotalTransactions)

	txns, err := f.accounts.ListTransactions(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestPurchaseRollsBackAndRefunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	buyer := testutil.CreateUser(t, f.store, "buyer@example.com", 0)
	testutil.FailUpdatesOn(t, f.store, "admin_earnings")

	_, err := f.purchases.PurchaseTokens(ctx, buyer.ID, "10GB")
	var persistenceErr *apperrors.PersistenceError
	require.True(t, errors.As(err, &persistenceErr), "got %v", err)

	assertDecimal(t, "0", testutil.ReloadUser(t, f.store, buyer.ID).Tokens)
	txns, err := f.accounts.ListTransactions(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, txns)

	require.Len(t, f.gateway.charges, 1)
	assert.Equal(t, []string{f.gateway.charges[0].Reference}, f.gateway.refunds)
}

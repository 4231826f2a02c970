// Package testutil builds SQLite-backed fixtures shared by package tests.
package testutil

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"datashare/internal/config"
	"datashare/internal/models"
	"datashare/internal/pricing"
	"datashare/internal/store"
)

// Logger returns a logger that discards output
func Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// NewStore opens a migrated SQLite store in a temporary directory
func NewStore(t *testing.T) *store.Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "datashare.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	st, err := store.Open(config.DatabaseConfig{Driver: config.DriverSQLite, URL: dsn}, Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// PricingConfig returns the default price table configuration
func PricingConfig(t *testing.T) config.PricingConfig {
	t.Helper()

	packages, err := config.ParsePackages("1GB=1.50,5GB=6.50,10GB=12.00,UNLIMITED=13.00")
	require.NoError(t, err)

	return config.PricingConfig{
		TokenPricePerGB:    decimal.RequireFromString("0.50"),
		SharerRatePerGB:    decimal.RequireFromString("0.30"),
		PlatformRatePerGB:  decimal.RequireFromString("0.20"),
		CommissionFraction: decimal.RequireFromString("0.4"),
		Packages:           packages,
	}
}

// PriceTable returns the default price table
func PriceTable(t *testing.T) *pricing.Table {
	t.Helper()

	table, err := pricing.NewTable(PricingConfig(t))
	require.NoError(t, err)
	return table
}

// CreateUser inserts an account with the given token balance
func CreateUser(t *testing.T, st *store.Store, email string, tokens float64) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: "unused",
		Country:      "Zimbabwe",
		Role:         models.RoleUser,
		IsActive:     true,
		Tokens:       decimal.NewFromFloat(tokens),
		Earnings:     decimal.Zero,
	}
	require.NoError(t, st.CreateUser(context.Background(), user))
	return user
}

// ReloadUser reads an account back from the store
func ReloadUser(t *testing.T, st *store.Store, id uint) *models.User {
	t.Helper()

	user, err := st.GetUser(context.Background(), id)
	require.NoError(t, err)
	return user
}

// Exec runs raw SQL against the store, for fault injection
func Exec(t *testing.T, st *store.Store, sql string) {
	t.Helper()
	require.NoError(t, st.DB().Exec(sql).Error)
}

// FailUpdatesOn installs a trigger that aborts every update of table
func FailUpdatesOn(t *testing.T, st *store.Store, table string) {
	t.Helper()
	Exec(t, st, "CREATE TRIGGER fail_"+table+" BEFORE UPDATE ON "+table+" BEGIN SELECT RAISE(ABORT, 'injected failure'); END")
}

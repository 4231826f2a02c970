package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datashare/internal/config"
	"datashare/internal/constants"
	apperrors "datashare/internal/errors"
)

func testPricing(t *testing.T) config.PricingConfig {
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

func TestNewTable(t *testing.T) {
	table, err := NewTable(testPricing(t))
	require.NoError(t, err)

	packages := table.Packages()
	require.Len(t, packages, 4)
	assert.Equal(t, []string{"1GB", "5GB", "10GB", "UNLIMITED"},
		[]string{packages[0].Name, packages[1].Name, packages[2].Name, packages[3].Name})

	pkg, err := table.Package("5gb")
	require.NoError(t, err)
	assert.True(t, pkg.Tokens.Equal(decimal.NewFromInt(5)))
	assert.False(t, pkg.Unlimited)

	unlimited, err := table.Package("UNLIMITED")
	require.NoError(t, err)
	assert.True(t, unlimited.Unlimited)
	assert.True(t, unlimited.Tokens.Equal(decimal.NewFromInt(constants.UnlimitedTokens)))
}

func TestPackageUnknown(t *testing.T) {
	table, err := NewTable(testPricing(t))
	require.NoError(t, err)

	_, err = table.Package("3GB")
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "package", validationErr.Field)
}

func TestNewTableRejectsBadNames(t *testing.T) {
	cfg := testPricing(t)
	cfg.Packages = []config.PackageConfig{{Name: "WEEKLY", Price: decimal.NewFromInt(3)}}

	_, err := NewTable(cfg)
	assert.Error(t, err)
}

func TestEarnings(t *testing.T) {
	table, err := NewTable(testPricing(t))
	require.NoError(t, err)

	assert.True(t, table.Commission(decimal.RequireFromString("6.50")).Equal(decimal.RequireFromString("2.6")))
	assert.True(t, table.SharerEarnings(decimal.NewFromInt(2)).Equal(decimal.RequireFromString("0.6")))
	assert.True(t, table.PlatformEarnings(decimal.NewFromInt(2)).Equal(decimal.RequireFromString("0.4")))
}

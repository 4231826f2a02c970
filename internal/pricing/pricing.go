// Package pricing holds the immutable price table and per-GB rates.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"datashare/internal/config"
	"datashare/internal/constants"
	apperrors "datashare/internal/errors"
)

// Package is a purchasable token bundle
type Package struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Tokens    decimal.Decimal `json:"tokens"`
	Unlimited bool            `json:"unlimited"`
}

// Rates are the per-GB prices used by settlement
type Rates struct {
	BuyerPricePerGB   decimal.Decimal `json:"buyer_price_per_gb"`
	SharerRatePerGB   decimal.Decimal `json:"sharer_rate_per_gb"`
	PlatformRatePerGB decimal.Decimal `json:"platform_rate_per_gb"`
}

// Table is the price table supplied at startup
type Table struct {
	packages   map[string]Package
	order      []string
	rates      Rates
	commission decimal.Decimal
}

// NewTable builds the price table from configuration
func NewTable(cfg config.PricingConfig) (*Table, error) {
	t := &Table{
		packages: make(map[string]Package, len(cfg.Packages)),
		rates: Rates{
			BuyerPricePerGB:   cfg.TokenPricePerGB,
			SharerRatePerGB:   cfg.SharerRatePerGB,
			PlatformRatePerGB: cfg.PlatformRatePerGB,
		},
		commission: cfg.CommissionFraction,
	}

	for _, pc := range cfg.Packages {
		pkg, err := newPackage(pc)
		if err != nil {
			return nil, err
		}
		t.packages[pkg.Name] = pkg
		t.order = append(t.order, pkg.Name)
	}

	return t, nil
}

// newPackage derives the token allowance from the package name
func newPackage(pc config.PackageConfig) (Package, error) {
	name := strings.ToUpper(pc.Name)
	if name == constants.UnlimitedPackage {
		return Package{
			Name:      name,
			Price:     pc.Price,
			Tokens:    decimal.NewFromInt(constants.UnlimitedTokens),
			Unlimited: true,
		}, nil
	}

	size, ok := strings.CutSuffix(name, "GB")
	if !ok {
		return Package{}, &apperrors.ConfigError{Section: "pricing", Message: fmt.Sprintf("package %s must be named <N>GB or %s", name, constants.UnlimitedPackage)}
	}

	tokens, err := decimal.NewFromString(size)
	if err != nil || !tokens.IsPositive() {
		return Package{}, &apperrors.ConfigError{Section: "pricing", Message: fmt.Sprintf("package %s has an invalid size", name)}
	}

	return Package{Name: name, Price: pc.Price, Tokens: tokens}, nil
}

// Package looks up a package by name
func (t *Table) Package(name string) (Package, error) {
	pkg, ok := t.packages[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Package{}, &apperrors.ValidationError{Field: "package", Message: fmt.Sprintf("unknown package %q", name)}
	}
	return pkg, nil
}

// Packages returns the packages in configured order
func (t *Table) Packages() []Package {
	result := make([]Package, 0, len(t.order))
	for _, name := range t.order {
		result = append(result, t.packages[name])
	}
	return result
}

// Rates returns the per-GB rates
func (t *Table) Rates() Rates {
	return t.rates
}

// Commission returns the platform's cut of a package price
func (t *Table) Commission(price decimal.Decimal) decimal.Decimal {
	return price.Mul(t.commission)
}

// SharerEarnings returns the sharer's revenue for the given usage
func (t *Table) SharerEarnings(gb decimal.Decimal) decimal.Decimal {
	return gb.Mul(t.rates.SharerRatePerGB)
}

// PlatformEarnings returns the platform's revenue for the given usage
func (t *Table) PlatformEarnings(gb decimal.Decimal) decimal.Decimal {
	return gb.Mul(t.rates.PlatformRatePerGB)
}

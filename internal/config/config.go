package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	HTTP               HTTPConfig     `mapstructure:"http"`
	Database           DatabaseConfig `mapstructure:"database"`
	Auth               AuthConfig     `mapstructure:"auth"`
	Pricing            PricingConfig  `mapstructure:"pricing"`
	Telegram           TelegramConfig `mapstructure:"telegram"`
	Payment            PaymentConfig  `mapstructure:"payment"`
	SupportedCountries []string       `mapstructure:"supported_countries"`
	ComingSoonMessage  string         `mapstructure:"coming_soon_message"`
	AdminEmail         string         `mapstructure:"admin_email"`
	LogLevel           string         `mapstructure:"log_level"`
}

// HTTPConfig holds the JSON API listener configuration
type HTTPConfig struct {
	Addr           string  `mapstructure:"addr"`
	UsageRateLimit float64 `mapstructure:"usage_rate_limit"`
	UsageBurst     int     `mapstructure:"usage_burst"`
}

// DatabaseConfig holds the relational store configuration
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// AuthConfig holds the API token configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Issuer    string        `mapstructure:"issuer"`
}

// PackageConfig is one entry of the token price table
type PackageConfig struct {
	Name  string
	Price decimal.Decimal
}

// PricingConfig holds the price table and per-GB rates
type PricingConfig struct {
	TokenPricePerGB    decimal.Decimal
	SharerRatePerGB    decimal.Decimal
	PlatformRatePerGB  decimal.Decimal
	CommissionFraction decimal.Decimal
	Packages           []PackageConfig
}

// TelegramConfig holds the Telegram bot configuration
type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

// PaymentConfig holds the payment gateway configuration
type PaymentConfig struct {
	APIURL    string `mapstructure:"api_url"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Currency  string `mapstructure:"currency"`
}

// Simulated reports whether purchases skip real payment capture
func (p PaymentConfig) Simulated() bool {
	return p.APIURL == ""
}

// BotEnabled reports whether the Telegram front-end should start
func (t TelegramConfig) BotEnabled() bool {
	return t.Token != ""
}

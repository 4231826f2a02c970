package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	apperrors "datashare/internal/errors"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultPackages = "1GB=1.50,5GB=6.50,10GB=12.00,UNLIMITED=13.00"
)

// Load loads the configuration from environment variables, an optional .env
// file and an optional config.yaml in the working directory
func Load() (*Config, error) {
	// Missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &apperrors.ConfigError{Section: "file", Message: err.Error()}
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	// Set default values
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("USAGE_RATE_LIMIT", 1.0)
	v.SetDefault("USAGE_BURST", 5)
	v.SetDefault("DATABASE_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("JWT_ISSUER", "datashare")
	v.SetDefault("TOKEN_PRICE_PER_GB", "0.50")
	v.SetDefault("SHARER_RATE_PER_GB", "0.30")
	v.SetDefault("PLATFORM_RATE_PER_GB", "0.20")
	v.SetDefault("TOKEN_PACKAGES", defaultPackages)
	v.SetDefault("SUPPORTED_COUNTRIES", "Zimbabwe")
	v.SetDefault("COMING_SOON_MESSAGE", "Coming soon to your country!")
	v.SetDefault("PAYMENT_CURRENCY", "USD")

	// Define environment variables
	for _, key := range []string{
		"DATABASE_URL", "JWT_SECRET", "ADMIN_EMAIL", "TG_TOKEN",
		"PAYMENT_API_URL", "PAYMENT_API_KEY", "PAYMENT_API_SECRET", "PLATFORM_COMMISSION",
	} {
		_ = v.BindEnv(key)
	}

	ttl, err := time.ParseDuration(v.GetString("JWT_TTL"))
	if err != nil {
		return nil, &apperrors.ConfigError{Section: "auth", Message: fmt.Sprintf("invalid JWT_TTL: %v", err)}
	}

	// Create config instance
	cfg := &Config{
		LogLevel:          v.GetString("LOG_LEVEL"),
		AdminEmail:        strings.ToLower(strings.TrimSpace(v.GetString("ADMIN_EMAIL"))),
		ComingSoonMessage: v.GetString("COMING_SOON_MESSAGE"),
		HTTP: HTTPConfig{
			Addr:           v.GetString("HTTP_ADDR"),
			UsageRateLimit: v.GetFloat64("USAGE_RATE_LIMIT"),
			UsageBurst:     v.GetInt("USAGE_BURST"),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(strings.TrimSpace(v.GetString("DATABASE_DRIVER"))),
			URL:          normalizeDatabaseURL(strings.TrimSpace(v.GetString("DATABASE_URL"))),
			MaxOpenConns: v.GetInt("DATABASE_MAX_OPEN_CONNS"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			TokenTTL:  ttl,
			Issuer:    v.GetString("JWT_ISSUER"),
		},
		Telegram: TelegramConfig{
			Token: strings.TrimSpace(v.GetString("TG_TOKEN")),
		},
		Payment: PaymentConfig{
			APIURL:    strings.TrimRight(strings.TrimSpace(v.GetString("PAYMENT_API_URL")), "/"),
			APIKey:    strings.TrimSpace(v.GetString("PAYMENT_API_KEY")),
			APISecret: strings.TrimSpace(v.GetString("PAYMENT_API_SECRET")),
			Currency:  v.GetString("PAYMENT_CURRENCY"),
		},
	}

	// Parse supported countries
	for _, country := range strings.Split(v.GetString("SUPPORTED_COUNTRIES"), ",") {
		if country = strings.TrimSpace(country); country != "" {
			cfg.SupportedCountries = append(cfg.SupportedCountries, country)
		}
	}

	pricing, err := parsePricing(v)
	if err != nil {
		return nil, err
	}
	cfg.Pricing = *pricing

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parsePricing reads the rates and the package table
func parsePricing(v *viper.Viper) (*PricingConfig, error) {
	p := &PricingConfig{}

	rates := map[string]*decimal.Decimal{
		"TOKEN_PRICE_PER_GB":   &p.TokenPricePerGB,
		"SHARER_RATE_PER_GB":   &p.SharerRatePerGB,
		"PLATFORM_RATE_PER_GB": &p.PlatformRatePerGB,
	}
	for key, dst := range rates {
		value, err := decimal.NewFromString(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return nil, &apperrors.ConfigError{Section: "pricing", Message: fmt.Sprintf("invalid %s: %v", key, err)}
		}
		*dst = value
	}

	// Commission defaults to the platform share of the per-GB buyer price
	if raw := strings.TrimSpace(v.GetString("PLATFORM_COMMISSION")); raw != "" {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, &apperrors.ConfigError{Section: "pricing", Message: fmt.Sprintf("invalid PLATFORM_COMMISSION: %v", err)}
		}
		p.CommissionFraction = value
	} else if p.TokenPricePerGB.IsPositive() {
		p.CommissionFraction = p.PlatformRatePerGB.Div(p.TokenPricePerGB)
	}

	packages, err := ParsePackages(v.GetString("TOKEN_PACKAGES"))
	if err != nil {
		return nil, err
	}
	p.Packages = packages

	return p, nil
}

// ParsePackages parses a "NAME=PRICE,NAME=PRICE" list, keeping its order
func ParsePackages(raw string) ([]PackageConfig, error) {
	var packages []PackageConfig
	seen := make(map[string]bool)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, price, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, &apperrors.ConfigError{Section: "pricing", Message: fmt.Sprintf("package entry %q must be NAME=PRICE", entry)}
		}

		name = strings.ToUpper(strings.TrimSpace(name))
		if seen[name] {
			return nil, &apperrors.ConfigError{Section: "pricing", Message: fmt.Sprintf("duplicate package %s", name)}
		}

		value, err := decimal.NewFromString(strings.TrimSpace(price))
		if err != nil {
			return nil, &apperrors.ConfigError{Section: "pricing", Message: fmt.Sprintf("invalid price for %s: %v", name, err)}
		}

		seen[name] = true
		packages = append(packages, PackageConfig{Name: name, Price: value})
	}

	return packages, nil
}

// normalizeDatabaseURL rewrites the legacy postgres:// scheme
func normalizeDatabaseURL(url string) string {
	if strings.HasPrefix(url, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(url, "postgres://")
	}
	return url
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	switch cfg.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return &apperrors.ConfigError{Section: "database", Message: fmt.Sprintf("unsupported driver %q", cfg.Database.Driver)}
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}

	p := cfg.Pricing
	if p.TokenPricePerGB.IsNegative() || p.SharerRatePerGB.IsNegative() || p.PlatformRatePerGB.IsNegative() {
		return &apperrors.ConfigError{Section: "pricing", Message: "rates must not be negative"}
	}
	if p.CommissionFraction.IsNegative() || p.CommissionFraction.GreaterThan(decimal.NewFromInt(1)) {
		return &apperrors.ConfigError{Section: "pricing", Message: "commission fraction must be between 0 and 1"}
	}
	if len(p.Packages) == 0 {
		return &apperrors.ConfigError{Section: "pricing", Message: "at least one token package is required"}
	}
	for _, pkg := range p.Packages {
		if !pkg.Price.IsPositive() {
			return &apperrors.ConfigError{Section: "pricing", Message: fmt.Sprintf("package %s must have a positive price", pkg.Name)}
		}
	}

	if len(cfg.SupportedCountries) == 0 {
		return errors.New("SUPPORTED_COUNTRIES is required")
	}

	if !cfg.Payment.Simulated() && (cfg.Payment.APIKey == "" || cfg.Payment.APISecret == "") {
		return &apperrors.ConfigError{Section: "payment", Message: "PAYMENT_API_KEY and PAYMENT_API_SECRET are required with PAYMENT_API_URL"}
	}

	return nil
}

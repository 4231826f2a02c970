package constants

const (
	// Traffic constants
	MBPerGB = 1024

	// Package constants
	UnlimitedPackage = "UNLIMITED"
	UnlimitedTokens  = 999999

	// Account constants
	MinPasswordLength = 8
	MaxEmailLength    = 120
	MaxCountryLength  = 50
	MaxPhoneLength    = 20

	// Session constants
	SecretBytes            = 32
	AvailableSessionsLimit = 10
	RecentTransactionLimit = 10
	AdminTransactionLimit  = 20

	// Network constants
	DefaultTimeout          = 30
	DefaultRetryCount       = 3
	DefaultRetryWaitTime    = 5
	DefaultRetryMaxWaitTime = 20
	ShutdownTimeout         = 10

	// Cache constants
	CacheExpiration      = 30 // minutes
	CacheCleanupInterval = 10 // minutes

	// Formatting constants
	MaxEmailDisplayLength = 17
	MaxEmailSuffixLength  = 14
	TimestampFormat       = "2006-01-02 15:04:05"
	DateFormat            = "2006-01-02"
	CurrencySymbol        = "$"
)

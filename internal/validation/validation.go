package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"datashare/internal/constants"
	apperrors "datashare/internal/errors"
)

// maxSecretLength bounds session identifiers and connection tokens
const maxSecretLength = 64

// ValidateUsageDelta validates a usage report in megabytes
func ValidateUsageDelta(deltaMB decimal.Decimal) error {
	if deltaMB.IsNegative() {
		return &apperrors.ValidationError{Field: "data_used_mb", Message: "must not be negative"}
	}
	return nil
}

// ValidateSecret validates a session identifier or connection token
func ValidateSecret(field, secret string) error {
	if secret == "" {
		return &apperrors.ValidationError{Field: field, Message: "is required"}
	}

	if len(secret) > maxSecretLength {
		return &apperrors.ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters", maxSecretLength)}
	}

	for _, r := range secret {
		if !isValidSecretChar(r) {
			return &apperrors.ValidationError{Field: field, Message: "contains invalid characters"}
		}
	}

	return nil
}

// ValidateCountry validates a registration country
func ValidateCountry(country string) error {
	if country == "" {
		return &apperrors.ValidationError{Field: "country", Message: "is required"}
	}
	if len(country) > constants.MaxCountryLength {
		return &apperrors.ValidationError{Field: "country", Message: fmt.Sprintf("must be at most %d characters", constants.MaxCountryLength)}
	}
	return nil
}

// isValidSecretChar checks if a character belongs to the URL-safe base64 alphabet
func isValidSecretChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' || r == '_'
}

package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"datashare/internal/constants"
	apperrors "datashare/internal/errors"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9 ]{6,19}$`)
)

// TextValidator validates registration input
type TextValidator struct {
	logger *logrus.Logger
}

// NewTextValidator creates a new text validator
func NewTextValidator(logger *logrus.Logger) *TextValidator {
	return &TextValidator{
		logger: logger,
	}
}

// NormalizeEmail lowercases and trims an email address
func (v *TextValidator) NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail validates an email address
func (v *TextValidator) ValidateEmail(email string) error {
	if len(email) > constants.MaxEmailLength || !emailRegex.MatchString(email) {
		return &apperrors.ValidationError{Field: "email", Message: "invalid email address"}
	}
	return nil
}

// ValidatePassword validates a password
func (v *TextValidator) ValidatePassword(password string) error {
	// Check length
	if len(password) < constants.MinPasswordLength {
		return &apperrors.ValidationError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", constants.MinPasswordLength)}
	}

	// Check for at least one digit
	hasDigit := false
	for _, r := range password {
		if unicode.IsDigit(r) {
			hasDigit = true
			break
		}
	}
	if !hasDigit {
		return &apperrors.ValidationError{Field: "password", Message: "must contain at least one digit"}
	}

	return nil
}

// ValidatePhone validates an optional phone number
func (v *TextValidator) ValidatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if len(phone) > constants.MaxPhoneLength || !phoneRegex.MatchString(phone) {
		return &apperrors.ValidationError{Field: "phone", Message: "invalid phone number"}
	}
	return nil
}

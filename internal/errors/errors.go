package errors

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NotFoundError represents a missing session, user or transaction
type NotFoundError struct {
	Resource string
	ID       string
}

// Error returns the error message
func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ValidationError represents an error when validation fails
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// InsufficientBalanceError represents a buyer without tokens to spend
type InsufficientBalanceError struct {
	UserID  uint
	Balance decimal.Decimal
}

// Error returns the error message
func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient token balance for user %d: %s", e.UserID, e.Balance.String())
}

// PersistenceError wraps a backing-store failure
type PersistenceError struct {
	Operation string
	Err       error
}

// Error returns the error message
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying store error
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// PaymentGatewayError represents an error from the payment gateway
type PaymentGatewayError struct {
	Operation string
	Status    int
	Message   string
}

// Error returns the error message
func (e *PaymentGatewayError) Error() string {
	return fmt.Sprintf("payment gateway error during %s (status %d): %s", e.Operation, e.Status, e.Message)
}

// PermissionError represents an error related to permissions
type PermissionError struct {
	UserID       uint
	Role         string
	RequiredRole string
}

// Error returns the error message
func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission error for user %d: has %s role, requires %s role", e.UserID, e.Role, e.RequiredRole)
}

// AuthenticationError represents rejected credentials
type AuthenticationError struct {
	Message string
}

// Error returns the error message
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// RegionError represents a country the service does not operate in yet
type RegionError struct {
	Country string
}

// Error returns the error message
func (e *RegionError) Error() string {
	return fmt.Sprintf("service not available in %s yet", e.Country)
}

// ConflictError represents a uniqueness violation
type ConflictError struct {
	Resource string
	Message  string
}

// Error returns the error message
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Message)
}

// ConfigError represents an error related to configuration
type ConfigError struct {
	Section string
	Message string
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Section, e.Message)
}

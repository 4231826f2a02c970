package permissions

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	apperrors "datashare/internal/errors"
	"datashare/internal/models"
)

// AccessType represents the access level of a Telegram user
type AccessType int

const (
	// Guest represents a Telegram user without a linked account
	Guest AccessType = iota
	// Member represents a linked account
	Member
	// Admin represents a linked account with the admin role
	Admin
)

// String returns the access type name
func (a AccessType) String() string {
	switch a {
	case Member:
		return "member"
	case Admin:
		return "admin"
	default:
		return "guest"
	}
}

// AccountLookup resolves Telegram users to accounts
type AccountLookup interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
}

// PermissionController manages user permissions
type PermissionController struct {
	accounts AccountLookup
	logger   *logrus.Logger
}

// NewController creates a new permission controller
func NewController(accounts AccountLookup, logger *logrus.Logger) *PermissionController {
	return &PermissionController{
		accounts: accounts,
		logger:   logger,
	}
}

// Resolve determines the access type of a Telegram user and returns the linked account, if any
func (p *PermissionController) Resolve(ctx context.Context, telegramID int64) (AccessType, *models.User, error) {
	user, err := p.accounts.GetByTelegramID(ctx, telegramID)
	if err != nil {
		var notFound *apperrors.NotFoundError
		if errors.As(err, &notFound) {
			p.logger.Debugf("Telegram user %d is not linked", telegramID)
			return Guest, nil, nil
		}
		return Guest, nil, err
	}

	// Disabled accounts fall back to guest access
	if !user.IsActive {
		return Guest, nil, nil
	}

	accessType := AccessForRole(user)
	p.logger.Debugf("Telegram user %d resolved to account %d with %s access", telegramID, user.ID, accessType)
	return accessType, user, nil
}

// AccessForRole maps an account role to a bot access type
func AccessForRole(user *models.User) AccessType {
	if user == nil {
		return Guest
	}
	if user.IsAdmin() {
		return Admin
	}
	return Member
}

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"datashare/internal/auth"
	"datashare/internal/constants"
	apperrors "datashare/internal/errors"
	"datashare/internal/models"
	"datashare/internal/store"
	"datashare/internal/validation"
)

// RegisterInput holds the fields of a new account
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
}

// AccountService manages accounts and balances
type AccountService struct {
	store     *store.Store
	validator *TextValidator
	countries map[string]bool
	logger    *logrus.Logger
}

// NewAccountService creates a new account service
func NewAccountService(st *store.Store, validator *TextValidator, supportedCountries []string, logger *logrus.Logger) *AccountService {
	countries := make(map[string]bool, len(supportedCountries))
	for _, country := range supportedCountries {
		countries[strings.ToLower(strings.TrimSpace(country))] = true
	}

	return &AccountService{
		store:     st,
		validator: validator,
		countries: countries,
		logger:    logger,
	}
}

// Register creates a new account
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := s.validator.NormalizeEmail(input.Email)
	country := strings.TrimSpace(input.Country)
	phone := strings.TrimSpace(input.Phone)

	if err := s.validator.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := s.validator.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if err := validation.ValidateCountry(country); err != nil {
		return nil, err
	}
	if err := s.validator.ValidatePhone(phone); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, &apperrors.ConflictError{Resource: "user", Message: "email already registered"}
	} else if !isNotFound(err) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Country:      country,
		Phone:        phone,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		s.logger.Errorf("Failed to register %s: %v", email, err)
		return nil, err
	}

	s.logger.Infof("Registered user %d from %s", user.ID, country)
	return user, nil
}

// Authenticate verifies credentials and returns the account
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, s.validator.NormalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return nil, &apperrors.AuthenticationError{Message: "invalid email or password"}
		}
		return nil, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		s.logger.Debugf("Rejected password for user %d", user.ID)
		return nil, &apperrors.AuthenticationError{Message: "invalid email or password"}
	}

	if !user.IsActive {
		return nil, &apperrors.AuthenticationError{Message: "account disabled"}
	}

	return user, nil
}

// GetUser returns an account by id
func (s *AccountService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

// GetByTelegramID returns the account linked to a Telegram user
func (s *AccountService) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.store.GetUserByTelegramID(ctx, telegramID)
}

// Balance returns the token balance and accrued earnings of an account
func (s *AccountService) Balance(ctx context.Context, id uint) (*models.BalanceSummary, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.BalanceSummary{
		UserID:   user.ID,
		Tokens:   user.Tokens,
		Earnings: user.Earnings,
		IsSharer: user.IsSharer,
	}, nil
}

// ListTransactions returns the latest transactions of an account
func (s *AccountService) ListTransactions(ctx context.Context, id uint) ([]models.Transaction, error) {
	return s.store.ListUserTransactions(ctx, id, constants.RecentTransactionLimit)
}

// LinkTelegram authenticates an account and binds it to a Telegram user
func (s *AccountService) LinkTelegram(ctx context.Context, telegramID int64, email, password string) (*models.User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if existing, err := s.store.GetUserByTelegramID(ctx, telegramID); err == nil && existing.ID != user.ID {
		return nil, &apperrors.ConflictError{Resource: "telegram", Message: "telegram account already linked to another user"}
	} else if err != nil && !isNotFound(err) {
		return nil, err
	}

	if err := s.store.LinkTelegram(ctx, user.ID, telegramID); err != nil {
		return nil, err
	}

	user.TelegramID = &telegramID
	s.logger.Infof("Linked telegram user %d to account %d", telegramID, user.ID)
	return user, nil
}

// EnsureAdmin grants the admin role to the configured bootstrap account
func (s *AccountService) EnsureAdmin(ctx context.Context, email string) error {
	if email == "" {
		return nil
	}

	user, err := s.store.GetUserByEmail(ctx, s.validator.NormalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			s.logger.Warnf("Admin account %s not registered yet", email)
			return nil
		}
		return err
	}

	if user.IsAdmin() {
		return nil
	}

	if err := s.store.SetRole(ctx, user.ID, models.RoleAdmin); err != nil {
		return err
	}

	s.logger.Infof("Granted admin role to user %d", user.ID)
	return nil
}

// IsSupportedCountry reports whether the service operates in the given country
func (s *AccountService) IsSupportedCountry(country string) bool {
	return s.countries[strings.ToLower(strings.TrimSpace(country))]
}

// RequireSupportedCountry returns a RegionError for accounts outside the service area
func (s *AccountService) RequireSupportedCountry(user *models.User) error {
	if !s.IsSupportedCountry(user.Country) {
		return &apperrors.RegionError{Country: user.Country}
	}
	return nil
}

func isNotFound(err error) bool {
	var notFound *apperrors.NotFoundError
	return errors.As(err, &notFound)
}

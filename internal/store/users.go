package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"datashare/internal/models"
)

const userResource = "user"

// CreateUser inserts a new account
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	err := s.query(ctx, false).Create(user).Error
	return wrapError("create user", userResource, user.Email, err)
}

// GetUser loads an account by id
func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.query(ctx, false).First(&user, id).Error
	if err != nil {
		return nil, wrapError("get user", userResource, strconv.FormatUint(uint64(id), 10), err)
	}
	return &user, nil
}

// GetUserByEmail loads an account by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.query(ctx, false).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, wrapError("get user by email", userResource, email, err)
	}
	return &user, nil
}

// GetUserByTelegramID loads the account linked to a Telegram user
func (s *Store) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := s.query(ctx, false).Where("telegram_id = ?", telegramID).First(&user).Error
	if err != nil {
		return nil, wrapError("get user by telegram id", userResource, strconv.FormatInt(telegramID, 10), err)
	}
	return &user, nil
}

// LockUsers loads and row-locks the given accounts in ascending id order,
// so concurrent settlements always acquire user locks in the same order
func (s *Store) LockUsers(ctx context.Context, ids ...uint) (map[uint]*models.User, error) {
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

	var users []models.User
	err := s.query(ctx, true).Where("id IN ?", unique).Order("id").Find(&users).Error
	if err != nil {
		return nil, wrapError("lock users", userResource, "", err)
	}

	result := make(map[uint]*models.User, len(users))
	for i := range users {
		result[users[i].ID] = &users[i]
	}

	for _, id := range unique {
		if _, ok := result[id]; !ok {
			return nil, wrapError("lock users", userResource, strconv.FormatUint(uint64(id), 10), fmt.Errorf("user %d: %w", id, errRecordNotFound))
		}
	}
	return result, nil
}

// SaveUserBalances writes the token balance and earnings of an account
func (s *Store) SaveUserBalances(ctx context.Context, user *models.User) error {
	return s.updateUser(ctx, user.ID, "save user balances", map[string]interface{}{
		"tokens":   user.Tokens,
		"earnings": user.Earnings,
	})
}

// MarkSharer flags an account as a sharer
func (s *Store) MarkSharer(ctx context.Context, id uint) error {
	return s.updateUser(ctx, id, "mark sharer", map[string]interface{}{"is_sharer": true})
}

// SetRole assigns an authorization role
func (s *Store) SetRole(ctx context.Context, id uint, role models.Role) error {
	return s.updateUser(ctx, id, "set role", map[string]interface{}{"role": role})
}

// LinkTelegram binds a Telegram user to an account
func (s *Store) LinkTelegram(ctx context.Context, id uint, telegramID int64) error {
	return s.updateUser(ctx, id, "link telegram", map[string]interface{}{"telegram_id": telegramID})
}

// CountUsers returns the number of accounts
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.query(ctx, false).Model(&models.User{}).Count(&count).Error
	return count, wrapError("count users", userResource, "", err)
}

// CountSharers returns the number of accounts that have shared at least once
func (s *Store) CountSharers(ctx context.Context) (int64, error) {
	var count int64
	err := s.query(ctx, false).Model(&models.User{}).Where("is_sharer = ?", true).Count(&count).Error
	return count, wrapError("count sharers", userResource, "", err)
}

// ListTopSharers returns sharers ordered by accrued earnings
func (s *Store) ListTopSharers(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := s.query(ctx, false).
		Where("is_sharer = ?", true).
		Order("earnings DESC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, wrapError("list top sharers", userResource, "", err)
	}
	return users, nil
}

func (s *Store) updateUser(ctx context.Context, id uint, operation string, values map[string]interface{}) error {
	result := s.query(ctx, false).Model(&models.User{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return wrapError(operation, userResource, strconv.FormatUint(uint64(id), 10), result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapError(operation, userResource, strconv.FormatUint(uint64(id), 10), errRecordNotFound)
	}
	return nil
}

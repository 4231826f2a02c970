package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"datashare/internal/constants"
	"datashare/internal/models"
)

// UserStateService manages bot conversation states
type UserStateService struct {
	cache  *cache.Cache
	logger *logrus.Logger
}

// NewUserStateService creates a new user state service
func NewUserStateService(logger *logrus.Logger) *UserStateService {
	return &UserStateService{
		cache:  cache.New(constants.CacheExpiration*time.Minute, constants.CacheCleanupInterval*time.Minute),
		logger: logger,
	}
}

// GetState gets a user's state
func (s *UserStateService) GetState(telegramID int64) (*models.UserState, error) {
	key := stateKey(telegramID)

	if data, found := s.cache.Get(key); found {
		if state, ok := data.(*models.UserState); ok {
			copied := *state
			return &copied, nil
		}
		return nil, fmt.Errorf("invalid state type for user %d", telegramID)
	}

	// Return default state if not found
	return &models.UserState{State: models.Default}, nil
}

// SetState sets a user's state
func (s *UserStateService) SetState(telegramID int64, state models.UserState) {
	s.cache.Set(stateKey(telegramID), &state, cache.DefaultExpiration)
	s.logger.Debugf("Set state for user %d: %d", telegramID, state.State)
}

// ClearState clears a user's state
func (s *UserStateService) ClearState(telegramID int64) {
	s.cache.Delete(stateKey(telegramID))
	s.logger.Debugf("Cleared state for user %d", telegramID)
}

// WithConversationState updates a user's conversation state
func (s *UserStateService) WithConversationState(telegramID int64, conversationState models.ConversationState) error {
	state, err := s.GetState(telegramID)
	if err != nil {
		return err
	}

	state.State = conversationState
	s.SetState(telegramID, *state)
	return nil
}

// WithPayload updates a user's conversation state and payload together
func (s *UserStateService) WithPayload(telegramID int64, conversationState models.ConversationState, payload string) {
	s.SetState(telegramID, models.UserState{State: conversationState, Payload: &payload})
}

func stateKey(telegramID int64) string {
	return fmt.Sprintf("user_state_%d", telegramID)
}

package permissions

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "datashare/internal/errors"
	"datashare/internal/models"
)

type fakeLookup map[int64]*models.User

func (f fakeLookup) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	if telegramID < 0 {
		return nil, &apperrors.PersistenceError{Operation: "get user", Err: errors.New("db down")}
	}
	user, ok := f[telegramID]
	if !ok {
		return nil, &apperrors.NotFoundError{Resource: "user"}
	}
	return user, nil
}

func TestResolve(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctrl := NewController(fakeLookup{
		1: {ID: 10, Role: models.RoleUser, IsActive: true},
		2: {ID: 20, Role: models.RoleAdmin, IsActive: true},
		3: {ID: 30, Role: models.RoleAdmin, IsActive: false},
	}, logger)

	tests := []struct {
		name       string
		telegramID int64
		access     AccessType
		userID     uint
	}{
		{"member", 1, Member, 10},
		{"admin", 2, Admin, 20},
		{"disabled", 3, Guest, 0},
		{"unlinked", 4, Guest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			access, user, err := ctrl.Resolve(context.Background(), tt.telegramID)
			require.NoError(t, err)
			assert.Equal(t, tt.access, access)
			if tt.userID == 0 {
				assert.Nil(t, user)
			} else {
				require.NotNil(t, user)
				assert.Equal(t, tt.userID, user.ID)
			}
		})
	}

	_, _, err := ctrl.Resolve(context.Background(), -1)
	assert.Error(t, err)
}

func TestAccessForRole(t *testing.T) {
	assert.Equal(t, Guest, AccessForRole(nil))
	assert.Equal(t, Member, AccessForRole(&models.User{Role: models.RoleUser}))
	assert.Equal(t, Admin, AccessForRole(&models.User{Role: models.RoleAdmin}))
	assert.Equal(t, "admin", Admin.String())
}

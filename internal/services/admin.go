package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"datashare/internal/constants"
	"datashare/internal/models"
	"datashare/internal/store"
)

const topSharersLimit = 5

// AdminService builds platform-wide reports
type AdminService struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(st *store.Store, logger *logrus.Logger) *AdminService {
	return &AdminService{
		store:  st,
		logger: logger,
	}
}

// Overview returns the platform earnings aggregate with headline counts
func (s *AdminService) Overview(ctx context.Context) (*models.PlatformOverview, error) {
	earnings, err := s.store.GetAdminEarnings(ctx, false)
	if err != nil {
		return nil, err
	}

	totalUsers, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	totalSharers, err := s.store.CountSharers(ctx)
	if err != nil {
		return nil, err
	}

	activeSessions, err := s.store.CountActiveSessions(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.store.ListRecentTransactions(ctx, constants.AdminTransactionLimit)
	if err != nil {
		return nil, err
	}

	s.logger.Debugf("Built platform overview: %d users, %d active sessions", totalUsers, activeSessions)

	return &models.PlatformOverview{
		Earnings:           *earnings,
		TotalUsers:         totalUsers,
		TotalSharers:       totalSharers,
		ActiveSessions:     activeSessions,
		RecentTransactions: recent,
	}, nil
}

// TopSharers returns the highest-earning sharers in the requested order
func (s *AdminService) TopSharers(ctx context.Context, sortType models.SortType) ([]models.SharerStats, error) {
	users, err := s.store.ListTopSharers(ctx, topSharersLimit)
	if err != nil {
		return nil, err
	}

	stats := make([]models.SharerStats, 0, len(users))
	for _, user := range users {
		stats = append(stats, models.SharerStats{UserID: user.ID, Email: user.Email, Earnings: user.Earnings})
	}
	models.SortSharers(stats, sortType)
	return stats, nil
}

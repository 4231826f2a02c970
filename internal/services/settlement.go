package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"datashare/internal/constants"
	"datashare/internal/metrics"
	"datashare/internal/models"
	"datashare/internal/pricing"
	"datashare/internal/store"
	"datashare/internal/validation"
)

// UsageSettlement is the result of one usage report
type UsageSettlement struct {
	Session    *models.SharingSession `json:"session"`
	DeltaGB    decimal.Decimal        `json:"data_used_gb"`
	Terminated bool                   `json:"terminated"`
}

// SettlementService applies usage reports and stops sessions
type SettlementService struct {
	store  *store.Store
	prices *pricing.Table
	now    func() time.Time
	logger *logrus.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(st *store.Store, prices *pricing.Table, logger *logrus.Logger) *SettlementService {
	return &SettlementService{
		store:  st,
		prices: prices,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// ReportUsage settles deltaMB of usage against the session's buyer, sharer and the platform
func (s *SettlementService) ReportUsage(ctx context.Context, sessionID string, deltaMB decimal.Decimal) (*UsageSettlement, error) {
	result, err := s.reportUsage(ctx, sessionID, deltaMB)
	metrics.RecordUsageReport(deltaMB, err)
	if err != nil {
		s.logger.Errorf("Failed to settle usage for session %s: %v", sessionID, err)
		return nil, err
	}

	if result.Terminated {
		metrics.RecordSessionTerminated(metrics.ReasonExhausted)
		s.logger.Infof("Session %d ended: buyer balance exhausted", result.Session.ID)
	}

	return result, nil
}

func (s *SettlementService) reportUsage(ctx context.Context, sessionID string, deltaMB decimal.Decimal) (*UsageSettlement, error) {
	if err := checkSessionSecret("session_id", sessionID); err != nil {
		return nil, err
	}
	if err := validation.ValidateUsageDelta(deltaMB); err != nil {
		return nil, err
	}

	deltaGB := deltaMB.Div(decimal.NewFromInt(constants.MBPerGB))
	result := &UsageSettlement{DeltaGB: deltaGB}

	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		// Lock order: session, users by ascending id, aggregate
		session, err := tx.GetSession(ctx, sessionID, true)
		if err != nil {
			return err
		}

		participants := []uint{session.SharerID}
		if session.HasBuyer() {
			participants = append(participants, *session.UserID)
		}
		users, err := tx.LockUsers(ctx, participants...)
		if err != nil {
			return err
		}

		earnings, err := tx.GetAdminEarnings(ctx, true)
		if err != nil {
			return err
		}

		now := s.now()
		session.DataUsedMB = session.DataUsedMB.Add(deltaMB)

		if session.HasBuyer() {
			buyer := users[*session.UserID]
			buyer.Tokens = buyer.Tokens.Sub(deltaGB)
			if !buyer.Tokens.IsPositive() && session.IsActive {
				session.IsActive = false
				session.EndedAt = &now
				result.Terminated = true
			}
		}

		sharer := users[session.SharerID]
		sharer.Earnings = sharer.Earnings.Add(s.prices.SharerEarnings(deltaGB))

		// Sharer and buyer are distinct rows; write them in lock order
		for _, id := range sortedIDs(users) {
			if err := tx.SaveUserBalances(ctx, users[id]); err != nil {
				return err
			}
		}

		earnings.TotalEarnings = earnings.TotalEarnings.Add(s.prices.PlatformEarnings(deltaGB))
		earnings.LastUpdated = now
		if err := tx.SaveAdminEarnings(ctx, earnings); err != nil {
			return err
		}

		if err := tx.SaveSessionUsage(ctx, session); err != nil {
			return err
		}

		result.Session = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Settled %s MB on session %d", deltaMB.String(), result.Session.ID)
	return result, nil
}

// StopSession ends a session owned by sharerID; stopping an inactive session is a no-op
func (s *SettlementService) StopSession(ctx context.Context, sessionID string, sharerID uint) (*models.SharingSession, error) {
	if err := checkSessionSecret("session_id", sessionID); err != nil {
		return nil, err
	}

	var stopped bool
	var session *models.SharingSession
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		session, err = tx.GetSharerSession(ctx, sessionID, sharerID, true)
		if err != nil {
			return err
		}

		if !session.IsActive {
			return nil
		}

		now := s.now()
		if err := tx.EndSession(ctx, session.ID, now); err != nil {
			return err
		}
		session.IsActive = false
		session.EndedAt = &now
		stopped = true
		return nil
	})
	if err != nil {
		s.logger.Errorf("Failed to stop session %s for sharer %d: %v", sessionID, sharerID, err)
		return nil, err
	}

	if stopped {
		metrics.RecordSessionTerminated(metrics.ReasonStopped)
		s.logger.Infof("Session %d stopped by sharer %d", session.ID, sharerID)
	} else {
		s.logger.Debugf("Session %d already inactive", session.ID)
	}

	return session, nil
}

func sortedIDs(users map[uint]*models.User) []uint {
	ids := make([]uint, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

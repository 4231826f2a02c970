package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"datashare/internal/constants"
	apperrors "datashare/internal/errors"
	"datashare/internal/models"
	"datashare/internal/store"
	"datashare/internal/validation"
)

// SessionService starts, joins and lists sharing sessions
type SessionService struct {
	store    *store.Store
	accounts *AccountService
	qr       *QRService
	now      func() time.Time
	logger   *logrus.Logger
}

// NewSessionService creates a new session service
func NewSessionService(st *store.Store, accounts *AccountService, qr *QRService, logger *logrus.Logger) *SessionService {
	return &SessionService{
		store:    st,
		accounts: accounts,
		qr:       qr,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// StartSharing opens a new session hosted by the given account
func (s *SessionService) StartSharing(ctx context.Context, sharerID uint) (*models.SharingSession, error) {
	sharer, err := s.store.GetUser(ctx, sharerID)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.RequireSupportedCountry(sharer); err != nil {
		return nil, err
	}

	session, err := models.NewSharingSession(sharerID, s.now())
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.CreateSession(ctx, session); err != nil {
			return err
		}
		if sharer.IsSharer {
			return nil
		}
		return tx.MarkSharer(ctx, sharerID)
	})
	if err != nil {
		s.logger.Errorf("Failed to start session for sharer %d: %v", sharerID, err)
		return nil, err
	}

	s.logger.Infof("Sharer %d started session %d", sharerID, session.ID)
	return session, nil
}

// JoinSession attaches a buyer to the waiting session holding connectionToken
func (s *SessionService) JoinSession(ctx context.Context, connectionToken string, buyerID uint) (*models.SharingSession, error) {
	if err := checkSessionSecret("connection_token", connectionToken); err != nil {
		return nil, err
	}

	var session *models.SharingSession
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		session, err = tx.FindJoinableSession(ctx, connectionToken, true)
		if err != nil {
			return err
		}

		// A sharer cannot buy from themselves; report it like an unknown token
		if session.SharerID == buyerID {
			return &apperrors.NotFoundError{Resource: "session"}
		}

		users, err := tx.LockUsers(ctx, buyerID)
		if err != nil {
			return err
		}

		buyer := users[buyerID]
		if err := s.accounts.RequireSupportedCountry(buyer); err != nil {
			return err
		}
		if !buyer.HasTokens() {
			return &apperrors.InsufficientBalanceError{UserID: buyerID, Balance: buyer.Tokens}
		}

		if err := tx.AttachBuyer(ctx, session.ID, buyerID); err != nil {
			return err
		}
		session.UserID = &buyerID
		return nil
	})
	if err != nil {
		s.logger.Debugf("Buyer %d could not join session: %v", buyerID, err)
		return nil, err
	}

	s.logger.Infof("Buyer %d joined session %d", buyerID, session.ID)
	return session, nil
}

// ListAvailable returns active sessions waiting for a buyer
func (s *SessionService) ListAvailable(ctx context.Context) ([]models.SharingSession, error) {
	return s.store.ListAvailableSessions(ctx, constants.AvailableSessionsLimit)
}

// ListBuyerSessions returns the active sessions a buyer is connected to
func (s *SessionService) ListBuyerSessions(ctx context.Context, buyerID uint) ([]models.SharingSession, error) {
	return s.store.ListBuyerSessions(ctx, buyerID)
}

// ListSharerSessions returns the sessions hosted by a sharer
func (s *SessionService) ListSharerSessions(ctx context.Context, sharerID uint, activeOnly bool) ([]models.SharingSession, error) {
	return s.store.ListSharerSessions(ctx, sharerID, activeOnly, constants.AvailableSessionsLimit)
}

// GetForParticipant returns a session visible to its sharer or buyer
func (s *SessionService) GetForParticipant(ctx context.Context, sessionID string, userID uint) (*models.SharingSession, error) {
	if err := checkSessionSecret("session_id", sessionID); err != nil {
		return nil, err
	}

	session, err := s.store.GetSession(ctx, sessionID, false)
	if err != nil {
		return nil, err
	}

	if !session.IsParticipant(userID) {
		return nil, &apperrors.NotFoundError{Resource: "session", ID: sessionID}
	}
	return session, nil
}

// ConnectionQR renders the connection token of a sharer's session as a PNG
func (s *SessionService) ConnectionQR(ctx context.Context, sessionID string, sharerID uint) ([]byte, error) {
	if err := checkSessionSecret("session_id", sessionID); err != nil {
		return nil, err
	}

	session, err := s.store.GetSharerSession(ctx, sessionID, sharerID, false)
	if err != nil {
		return nil, err
	}
	return s.qr.GenerateQR(session.ConnectionToken)
}

// checkSessionSecret reports a malformed session id or connection token as an
// unknown session; no stored secret can match it
func checkSessionSecret(field, secret string) error {
	if err := validation.ValidateSecret(field, secret); err != nil {
		return &apperrors.NotFoundError{Resource: "session"}
	}
	return nil
}

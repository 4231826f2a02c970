package store

import (
	"context"
	"strconv"
	"time"

	"gorm.io/gorm"

	"datashare/internal/models"
)

const sessionResource = "session"

var errRecordNotFound = gorm.ErrRecordNotFound

// CreateSession inserts a new sharing session
func (s *Store) CreateSession(ctx context.Context, session *models.SharingSession) error {
	err := s.query(ctx, false).Create(session).Error
	return wrapError("create session", sessionResource, session.SessionID, err)
}

// GetSession loads a session by its public identifier; lock row-locks it for
// the rest of the enclosing transaction
func (s *Store) GetSession(ctx context.Context, sessionID string, lock bool) (*models.SharingSession, error) {
	var session models.SharingSession
	err := s.query(ctx, lock).Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		return nil, wrapError("get session", sessionResource, sessionID, err)
	}
	return &session, nil
}

// GetSharerSession loads a session owned by the given sharer
func (s *Store) GetSharerSession(ctx context.Context, sessionID string, sharerID uint, lock bool) (*models.SharingSession, error) {
	var session models.SharingSession
	err := s.query(ctx, lock).
		Where("session_id = ? AND sharer_id = ?", sessionID, sharerID).
		First(&session).Error
	if err != nil {
		return nil, wrapError("get sharer session", sessionResource, sessionID, err)
	}
	return &session, nil
}

// FindJoinableSession loads the active, buyer-less session with the given
// connection token
func (s *Store) FindJoinableSession(ctx context.Context, connectionToken string, lock bool) (*models.SharingSession, error) {
	var session models.SharingSession
	err := s.query(ctx, lock).
		Where("connection_token = ? AND is_active = ? AND user_id IS NULL", connectionToken, true).
		First(&session).Error
	if err != nil {
		return nil, wrapError("find joinable session", sessionResource, "", err)
	}
	return &session, nil
}

// AttachBuyer sets the buyer of a session
func (s *Store) AttachBuyer(ctx context.Context, id uint, buyerID uint) error {
	return s.updateSession(ctx, id, "attach buyer", map[string]interface{}{"user_id": buyerID})
}

// SaveSessionUsage writes the cumulative usage and lifecycle state of a session
func (s *Store) SaveSessionUsage(ctx context.Context, session *models.SharingSession) error {
	return s.updateSession(ctx, session.ID, "save session usage", map[string]interface{}{
		"data_used_mb": session.DataUsedMB,
		"is_active":    session.IsActive,
		"ended_at":     session.EndedAt,
	})
}

// EndSession marks a session inactive and stamps its end time
func (s *Store) EndSession(ctx context.Context, id uint, endedAt time.Time) error {
	return s.updateSession(ctx, id, "end session", map[string]interface{}{
		"is_active": false,
		"ended_at":  endedAt,
	})
}

// ListAvailableSessions returns active sessions still waiting for a buyer
func (s *Store) ListAvailableSessions(ctx context.Context, limit int) ([]models.SharingSession, error) {
	var sessions []models.SharingSession
	err := s.query(ctx, false).
		Where("is_active = ? AND user_id IS NULL", true).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, wrapError("list available sessions", sessionResource, "", err)
	}
	return sessions, nil
}

// ListBuyerSessions returns the active sessions a buyer is connected to
func (s *Store) ListBuyerSessions(ctx context.Context, buyerID uint) ([]models.SharingSession, error) {
	var sessions []models.SharingSession
	err := s.query(ctx, false).
		Where("user_id = ? AND is_active = ?", buyerID, true).
		Order("started_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, wrapError("list buyer sessions", sessionResource, "", err)
	}
	return sessions, nil
}

// ListSharerSessions returns the latest sessions hosted by a sharer
func (s *Store) ListSharerSessions(ctx context.Context, sharerID uint, activeOnly bool, limit int) ([]models.SharingSession, error) {
	q := s.query(ctx, false).Where("sharer_id = ?", sharerID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var sessions []models.SharingSession
	if err := q.Order("started_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, wrapError("list sharer sessions", sessionResource, "", err)
	}
	return sessions, nil
}

// CountActiveSessions returns the number of active sessions
func (s *Store) CountActiveSessions(ctx context.Context) (int64, error) {
	var count int64
	err := s.query(ctx, false).Model(&models.SharingSession{}).Where("is_active = ?", true).Count(&count).Error
	return count, wrapError("count active sessions", sessionResource, "", err)
}

func (s *Store) updateSession(ctx context.Context, id uint, operation string, values map[string]interface{}) error {
	result := s.query(ctx, false).Model(&models.SharingSession{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return wrapError(operation, sessionResource, strconv.FormatUint(uint64(id), 10), result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapError(operation, sessionResource, strconv.FormatUint(uint64(id), 10), errRecordNotFound)
	}
	return nil
}

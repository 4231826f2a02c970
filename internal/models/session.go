package models

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"datashare/internal/constants"
)

// SharingSession pairs one sharer with at most one buyer
type SharingSession struct {
	ID              uint            `gorm:"primaryKey" json:"-"`
	SessionID       string          `gorm:"size:64;uniqueIndex;not null" json:"session_id"`
	SharerID        uint            `gorm:"not null;index" json:"sharer_id"`
	UserID          *uint           `gorm:"index" json:"user_id,omitempty"`
	ConnectionToken string          `gorm:"size:64;uniqueIndex;not null" json:"-"`
	DataUsedMB      decimal.Decimal `gorm:"type:numeric(24,10);not null;default:0" json:"data_used_mb"`
	IsActive        bool            `gorm:"not null;default:true;index" json:"is_active"`
	StartedAt       time.Time       `gorm:"not null" json:"started_at"`
	EndedAt         *time.Time      `json:"ended_at,omitempty"`
}

// TableName pins the table name
func (SharingSession) TableName() string {
	return "sharing_sessions"
}

// HasBuyer reports whether a buyer is attached
func (s *SharingSession) HasBuyer() bool {
	return s.UserID != nil
}

// IsParticipant reports whether the user is the sharer or the attached buyer
func (s *SharingSession) IsParticipant(userID uint) bool {
	return s.SharerID == userID || (s.UserID != nil && *s.UserID == userID)
}

// DataUsedGB returns the cumulative usage in gigabytes
func (s *SharingSession) DataUsedGB() decimal.Decimal {
	return s.DataUsedMB.Div(decimal.NewFromInt(constants.MBPerGB))
}

// NewSharingSession creates an active session with fresh secrets
func NewSharingSession(sharerID uint, now time.Time) (*SharingSession, error) {
	sessionID, err := GenerateSecret()
	if err != nil {
		return nil, err
	}

	connectionToken, err := GenerateSecret()
	if err != nil {
		return nil, err
	}

	return &SharingSession{
		SessionID:       sessionID,
		SharerID:        sharerID,
		ConnectionToken: connectionToken,
		DataUsedMB:      decimal.Zero,
		IsActive:        true,
		StartedAt:       now,
	}, nil
}

// GenerateSecret generates a random URL-safe secret
func GenerateSecret() (string, error) {
	buf := make([]byte, constants.SecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the explicit authorization role of an account
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a buyer and, once they start sharing, a sharer
type User struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Email        string          `gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash string          `gorm:"size:256;not null" json:"-"`
	Country      string          `gorm:"size:50;not null" json:"country"`
	Phone        string          `gorm:"size:20" json:"phone,omitempty"`
	Role         Role            `gorm:"size:16;not null;default:user" json:"role"`
	IsSharer     bool            `gorm:"not null;default:false" json:"is_sharer"`
	IsActive     bool            `gorm:"not null;default:true" json:"is_active"`
	Tokens       decimal.Decimal `gorm:"type:numeric(24,10);not null;default:0" json:"tokens"`
	Earnings     decimal.Decimal `gorm:"type:numeric(24,10);not null;default:0" json:"earnings"`
	TelegramID   *int64          `gorm:"uniqueIndex" json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TableName pins the table name
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the account carries the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasTokens reports whether the buyer balance is positive
func (u *User) HasTokens() bool {
	return u.Tokens.IsPositive()
}

// BalanceSummary is the dashboard view of an account's balances
type BalanceSummary struct {
	UserID   uint            `json:"user_id"`
	Tokens   decimal.Decimal `json:"tokens"`
	Earnings decimal.Decimal `json:"earnings"`
	IsSharer bool            `json:"is_sharer"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// Transaction types
	TransactionPurchase = "purchase"

	// Transaction statuses
	TransactionCompleted = "completed"
)

// Transaction is an append-only record of a token purchase
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	Type        string          `gorm:"size:20;not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:numeric(24,10);not null" json:"amount"`
	Tokens      decimal.Decimal `gorm:"type:numeric(24,10);not null" json:"tokens"`
	Description string          `gorm:"size:256" json:"description"`
	Status      string          `gorm:"size:20;not null;default:completed" json:"status"`
	Reference   string          `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

// TableName pins the table name
func (Transaction) TableName() string {
	return "transactions"
}

// AdminEarningsID is the primary key of the singleton aggregate row
const AdminEarningsID = 1

// AdminEarnings is the platform-wide earnings aggregate
type AdminEarnings struct {
	ID                uint            `gorm:"primaryKey" json:"-"`
	TotalEarnings     decimal.Decimal `gorm:"type:numeric(24,10);not null;default:0" json:"total_earnings"`
	TotalTransactions int64           `gorm:"not null;default:0" json:"total_transactions"`
	LastUpdated       time.Time       `gorm:"not null" json:"last_updated"`
}

// TableName pins the table name
func (AdminEarnings) TableName() string {
	return "admin_earnings"
}

// PlatformOverview is the admin dashboard view
type PlatformOverview struct {
	Earnings           AdminEarnings `json:"earnings"`
	TotalUsers         int64         `json:"total_users"`
	TotalSharers       int64         `json:"total_sharers"`
	ActiveSessions     int64         `json:"active_sessions"`
	RecentTransactions []Transaction `json:"recent_transactions"`
}

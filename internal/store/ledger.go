package store

import (
	"context"
	"strconv"

	"datashare/internal/models"
)

const (
	transactionResource = "transaction"
	earningsResource    = "admin earnings"
)

// CreateTransaction appends a ledger entry
func (s *Store) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	err := s.query(ctx, false).Create(txn).Error
	return wrapError("create transaction", transactionResource, txn.Reference, err)
}

// GetTransaction loads a ledger entry by id
func (s *Store) GetTransaction(ctx context.Context, id uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.query(ctx, false).First(&txn, id).Error; err != nil {
		return nil, wrapError("get transaction", transactionResource, strconv.FormatUint(uint64(id), 10), err)
	}
	return &txn, nil
}

// ListUserTransactions returns a user's latest ledger entries
func (s *Store) ListUserTransactions(ctx context.Context, userID uint, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.query(ctx, false).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, wrapError("list user transactions", transactionResource, "", err)
	}
	return txns, nil
}

// ListRecentTransactions returns the latest ledger entries across all users
func (s *Store) ListRecentTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.query(ctx, false).Order("created_at DESC, id DESC").Limit(limit).Find(&txns).Error
	if err != nil {
		return nil, wrapError("list recent transactions", transactionResource, "", err)
	}
	return txns, nil
}

// GetAdminEarnings loads the singleton aggregate; lock row-locks it for the
// rest of the enclosing transaction
func (s *Store) GetAdminEarnings(ctx context.Context, lock bool) (*models.AdminEarnings, error) {
	var earnings models.AdminEarnings
	if err := s.query(ctx, lock).First(&earnings, models.AdminEarningsID).Error; err != nil {
		return nil, wrapError("get admin earnings", earningsResource, "", err)
	}
	return &earnings, nil
}

// SaveAdminEarnings writes the singleton aggregate
func (s *Store) SaveAdminEarnings(ctx context.Context, earnings *models.AdminEarnings) error {
	result := s.query(ctx, false).
		Model(&models.AdminEarnings{}).
		Where("id = ?", models.AdminEarningsID).
		Updates(map[string]interface{}{
			"total_earnings":     earnings.TotalEarnings,
			"total_transactions": earnings.TotalTransactions,
			"last_updated":       earnings.LastUpdated,
		})
	if result.Error != nil {
		return wrapError("save admin earnings", earningsResource, "", result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapError("save admin earnings", earningsResource, "", errRecordNotFound)
	}
	return nil
}

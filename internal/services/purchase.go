package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"datashare/internal/metrics"
	"datashare/internal/models"
	"datashare/internal/pricing"
	"datashare/internal/store"
)

// PurchaseResult is the outcome of a completed token purchase
type PurchaseResult struct {
	Transaction *models.Transaction   `json:"transaction"`
	Receipt     *models.PaymentReceipt `json:"receipt"`
	Package     pricing.Package       `json:"package"`
}

// PurchaseService sells token packages
type PurchaseService struct {
	store    *store.Store
	prices   *pricing.Table
	gateway  PaymentGateway
	currency string
	now      func() time.Time
	logger   *logrus.Logger
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(st *store.Store, prices *pricing.Table, gateway PaymentGateway, currency string, logger *logrus.Logger) *PurchaseService {
	return &PurchaseService{
		store:    st,
		prices:   prices,
		gateway:  gateway,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// PurchaseTokens captures payment for a package, then credits the tokens and books the platform commission
func (s *PurchaseService) PurchaseTokens(ctx context.Context, userID uint, packageName string) (*PurchaseResult, error) {
	pkg, err := s.prices.Package(packageName)
	if err != nil {
		metrics.RecordPurchase("unknown", err)
		return nil, err
	}

	result, err := s.purchase(ctx, userID, pkg)
	metrics.RecordPurchase(pkg.Name, err)
	if err != nil {
		s.logger.Errorf("Purchase of %s by user %d failed: %v", pkg.Name, userID, err)
		return nil, err
	}

	s.logger.Infof("User %d bought %s for %s", userID, pkg.Name, pkg.Price.StringFixed(2))
	return result, nil
}

func (s *PurchaseService) purchase(ctx context.Context, userID uint, pkg pricing.Package) (*PurchaseResult, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Purchased %s token package", pkg.Name)
	receipt, err := s.gateway.Charge(ctx, models.PaymentRequest{
		Reference:   uuid.NewString(),
		UserID:      userID,
		Amount:      pkg.Price,
		Currency:    s.currency,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		UserID:      userID,
		Type:        models.TransactionPurchase,
		Amount:      pkg.Price,
		Tokens:      pkg.Tokens,
		Description: description,
		Status:      models.TransactionCompleted,
		Reference:   receipt.Reference,
	}

	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		// Lock order: buyer, aggregate
		users, err := tx.LockUsers(ctx, userID)
		if err != nil {
			return err
		}

		earnings, err := tx.GetAdminEarnings(ctx, true)
		if err != nil {
			return err
		}

		buyer := users[userID]
		buyer.Tokens = buyer.Tokens.Add(pkg.Tokens)
		if err := tx.SaveUserBalances(ctx, buyer); err != nil {
			return err
		}

		now := s.now()
		txn.CreatedAt = now
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		earnings.TotalEarnings = earnings.TotalEarnings.Add(s.prices.Commission(pkg.Price))
		earnings.TotalTransactions++
		earnings.LastUpdated = now
		return tx.SaveAdminEarnings(ctx, earnings)
	})
	if err != nil {
		if refundErr := s.gateway.Refund(ctx, receipt.Reference); refundErr != nil {
			s.logger.Errorf("Failed to refund payment %s after rollback: %v", receipt.Reference, refundErr)
		}
		return nil, err
	}

	return &PurchaseResult{Transaction: txn, Receipt: receipt, Package: pkg}, nil
}

package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"datashare/internal/config"
	"datashare/internal/models"
	"datashare/pkg/paygate"
)

// PaymentGateway captures and reverses token purchase payments
type PaymentGateway interface {
	Charge(ctx context.Context, req models.PaymentRequest) (*models.PaymentReceipt, error)
	Refund(ctx context.Context, reference string) error
}

// SimulatedGateway accepts every payment without contacting a provider
type SimulatedGateway struct {
	logger *logrus.Logger
}

// NewSimulatedGateway creates a gateway that always succeeds
func NewSimulatedGateway(logger *logrus.Logger) *SimulatedGateway {
	return &SimulatedGateway{
		logger: logger,
	}
}

// Charge records a simulated capture
func (g *SimulatedGateway) Charge(ctx context.Context, req models.PaymentRequest) (*models.PaymentReceipt, error) {
	g.logger.Debugf("Simulated capture of %s %s for user %d", req.Amount.StringFixed(2), req.Currency, req.UserID)
	return &models.PaymentReceipt{
		Reference: req.Reference,
		ChargeID:  fmt.Sprintf("sim_%s", req.Reference),
		Status:    "captured",
	}, nil
}

// Refund records a simulated refund
func (g *SimulatedGateway) Refund(ctx context.Context, reference string) error {
	g.logger.Debugf("Simulated refund of %s", reference)
	return nil
}

// NewPaymentGateway returns the HTTP gateway client, or the simulated gateway when no API URL is configured
func NewPaymentGateway(cfg config.PaymentConfig, logger *logrus.Logger) PaymentGateway {
	if cfg.Simulated() {
		logger.Warn("Payment gateway not configured, purchases are simulated")
		return NewSimulatedGateway(logger)
	}
	return paygate.NewClient(cfg, logger)
}

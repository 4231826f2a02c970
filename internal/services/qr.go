package services

import (
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// QRService renders connection tokens as QR codes
type QRService struct {
	logger *logrus.Logger
}

// NewQRService creates a new QR code service
func NewQRService(logger *logrus.Logger) *QRService {
	return &QRService{
		logger: logger,
	}
}

// GenerateQR generates a PNG QR code for the given text
func (s *QRService) GenerateQR(text string) ([]byte, error) {
	// Secrets must not end up in logs
	s.logger.Debugf("Generating QR code for %d characters", len(text))

	qr, err := qrcode.Encode(text, qrcode.Medium, qrSize)
	if err != nil {
		s.logger.Errorf("Failed to generate QR code: %v", err)
		return nil, err
	}

	return qr, nil
}

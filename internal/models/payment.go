package models

import "github.com/shopspring/decimal"

// PaymentRequest is a capture request sent to the payment gateway
type PaymentRequest struct {
	Reference   string          `json:"reference"`
	UserID      uint            `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

// PaymentReceipt is the gateway's confirmation of a capture
type PaymentReceipt struct {
	Reference string `json:"reference"`
	ChargeID  string `json:"charge_id"`
	Status    string `json:"status"`
}

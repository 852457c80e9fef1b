package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is the lifecycle state of a payout request
type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

// Payout is a partner's request to withdraw balance
type Payout struct {
	ID             int             `json:"id"`
	PartnerID      int             `json:"partner_id"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  *string         `json:"payment_method"`
	PaymentDetails *string         `json:"payment_details,omitempty"`
	Status         PayoutStatus    `json:"status"`
	FailureReason  *string         `json:"failure_reason,omitempty"`
	RequestedAt    time.Time       `json:"requested_at"`
	CompletedAt    *time.Time      `json:"completed_at"`
}

// CreatePayoutRequest represents a payout request body
type CreatePayoutRequest struct {
	Amount         *float64 `json:"amount" validate:"required"`
	PaymentMethod  string   `json:"payment_method" validate:"omitempty,max=50"`
	PaymentDetails string   `json:"payment_details" validate:"omitempty,max=500"`
}

// PayoutResponse wraps a payout with a status message
type PayoutResponse struct {
	Message string  `json:"message"`
	Payout  *Payout `json:"payout"`
}

// SettlementResult summarises one settlement run
type SettlementResult struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

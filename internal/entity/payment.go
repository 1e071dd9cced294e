package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus tracks a payment attempt.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionVerifying TransactionStatus = "verifying"
	TransactionSuccess   TransactionStatus = "success"
	TransactionFailed    TransactionStatus = "failed"
)

// CanTransitionTransaction allows pending -> verifying -> success|failed,
// plus direct confirmation or failure of a pending transaction.
func CanTransitionTransaction(from, to TransactionStatus) bool {
	switch from {
	case TransactionPending:
		return to == TransactionVerifying || to == TransactionSuccess || to == TransactionFailed
	case TransactionVerifying:
		return to == TransactionSuccess || to == TransactionFailed
	default:
		return false
	}
}

// PaymentTransaction is one attempt to settle an order.
type PaymentTransaction struct {
	ID             string            `json:"id,omitempty"`
	OrderID        string            `json:"order_id"`
	TransactionRef string            `json:"transaction_ref"`
	Amount         decimal.Decimal   `json:"amount"`
	Method         PaymentMethod     `json:"method"`
	Status         TransactionStatus `json:"status"`
	QRPayload      string            `json:"qr_payload,omitempty"`
	QRImageURL     string            `json:"qr_image_url,omitempty"`
	SlipRef        string            `json:"slip_url,omitempty"`
	SlipUploadedAt *time.Time        `json:"slip_uploaded_at,omitempty"`
	ValidUntil     *time.Time        `json:"valid_until,omitempty"`
	VerifiedAt     *time.Time        `json:"verified_at,omitempty"`
	VerifiedBy     string            `json:"verified_by,omitempty"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      *time.Time        `json:"updated_at,omitempty"`
}

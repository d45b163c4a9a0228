package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus tracks the lifecycle of a gateway payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusVerified  PaymentStatus = "verified"
	PaymentStatusFulfilled PaymentStatus = "fulfilled"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFulfilled || s == PaymentStatusFailed
}

func (s PaymentStatus) String() string {
	return string(s)
}

// Payment stores one gateway order and its verification outcome. The record
// is created when the order is issued and is the durable source of truth for
// whether a payment succeeded; client-reported success is never trusted.
type Payment struct {
	BaseModel
	UserID           *uuid.UUID    `gorm:"type:uuid;index" json:"user_id"`
	GatewayOrderID   string        `gorm:"uniqueIndex" json:"gateway_order_id"`
	GatewayPaymentID string        `json:"gateway_payment_id"`
	Receipt          string        `json:"receipt"`
	AmountMinor      int64         `json:"amount_minor"`
	Currency         string        `json:"currency"`
	Status           PaymentStatus `gorm:"index" json:"status"`
	VerifiedAt       *time.Time    `json:"verified_at"`
	FailureReason    string        `json:"failure_reason"`
}

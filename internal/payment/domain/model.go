package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
	StatusExpired = "expired"
)

// ValidStatus reports whether status is a known payment status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusPaid, StatusFailed, StatusExpired:
		return true
	}
	return false
}

const (
	MethodBankTransfer    = "bank_transfer"
	GatewayManualTransfer = "manual_transfer"
)

// Payment is one payment attempt for an order. Amounts are in the smallest currency unit.
type Payment struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderID     snowflake.ID `json:"order_id" gorm:"not null;index"`
	Amount      int64        `json:"amount" gorm:"not null;default:0"`
	Status      string       `json:"status" gorm:"type:text;not null;index"`
	GatewayRef  *string      `json:"gateway_ref" gorm:"type:text;uniqueIndex:ux_payments_gateway_ref"`
	GatewayName string       `json:"gateway_name" gorm:"type:text"`
	PaymentURL  string       `json:"payment_url" gorm:"column:payment_url;type:text"`
	Method      string       `json:"method" gorm:"type:text"`
	ProofFile   string       `json:"proof_file" gorm:"type:text"`
	PaidAt      *time.Time   `json:"paid_at"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// Ref returns the gateway reference or an empty string.
func (p Payment) Ref() string {
	if p.GatewayRef == nil {
		return ""
	}
	return *p.GatewayRef
}

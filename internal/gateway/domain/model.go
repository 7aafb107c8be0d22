package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	GatewayMidtrans = "midtrans"
	GatewayXendit   = "xendit"
	GatewayManual   = "manual"
)

// Known reports whether name is a supported gateway.
func Known(name string) bool {
	switch name {
	case GatewayMidtrans, GatewayXendit, GatewayManual:
		return true
	}
	return false
}

// Config is the stored gateway configuration. Credentials are AES-GCM encrypted.
type Config struct {
	ID        snowflake.ID   `json:"id" gorm:"primaryKey"`
	Gateway   string         `json:"gateway" gorm:"type:text;not null;uniqueIndex:ux_payment_gateway_configs_gateway"`
	Config    datatypes.JSON `json:"-" gorm:"not null"`
	IsSandbox bool           `json:"is_sandbox" gorm:"not null;default:true"`
	IsActive  bool           `json:"is_active" gorm:"not null;default:false"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null"`
}

func (Config) TableName() string { return "payment_gateway_configs" }

// PaymentRequest asks a gateway to open a payment session for an order.
type PaymentRequest struct {
	OrderID       snowflake.ID
	OrderNumber   string
	Amount        int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Description   string
	PaymentType   string
}

// PaymentSession is what the customer is redirected to.
type PaymentSession struct {
	GatewayRef  string `json:"gateway_ref"`
	GatewayName string `json:"gateway_name"`
	PaymentURL  string `json:"payment_url"`
}

// Callback is the normalized gateway notification consumed by reconciliation.
type Callback struct {
	GatewayRef string `json:"gatewayRef"`
	Status     string `json:"status"`
	Method     string `json:"method"`
}

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/sitebuilder/internal/catalog/domain"
	paymentdomain "github.com/smallbiznis/sitebuilder/internal/payment/domain"
	tenantdomain "github.com/smallbiznis/sitebuilder/internal/tenant/domain"
)

const (
	StatusPending             = "pending"
	StatusPendingVerification = "pending_verification"
	StatusProcessing          = "processing"
	StatusActive              = "active"
	StatusCompleted           = "completed"
	StatusCancelled           = "cancelled"
)

// ValidStatus reports whether status is a known order status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusPendingVerification, StatusProcessing, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Settled reports whether the order is already past payment and must not regress.
func Settled(status string) bool {
	return status == StatusProcessing || status == StatusActive || status == StatusCompleted
}

const (
	PaymentTypeFull = "full"
	PaymentTypeDP   = "dp"
)

type Order struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderNumber        string       `json:"order_number" gorm:"type:text;not null;uniqueIndex:ux_orders_order_number"`
	ClientName         string       `json:"client_name" gorm:"type:text;not null"`
	BrandName          string       `json:"brand_name" gorm:"type:text;not null"`
	Email              string       `json:"email" gorm:"type:text;not null;index"`
	Phone              string       `json:"phone" gorm:"type:text;not null"`
	Address            string       `json:"address" gorm:"type:text"`
	Latitude           *float64     `json:"latitude"`
	Longitude          *float64     `json:"longitude"`
	SubdomainRequested string       `json:"subdomain_requested" gorm:"type:text"`
	DomainRequested    string       `json:"domain_requested" gorm:"type:text"`
	PackageID          snowflake.ID `json:"package_id" gorm:"not null;index"`
	PaymentType        string       `json:"payment_type" gorm:"type:text;not null"`
	Amount             int64        `json:"amount" gorm:"not null"`
	Status             string       `json:"status" gorm:"type:text;not null;index"`
	Notes              string       `json:"notes" gorm:"type:text"`
	CreatedAt          time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time    `json:"updated_at" gorm:"not null"`

	Package  *catalogdomain.Package  `json:"package,omitempty" gorm:"-"`
	Payments []paymentdomain.Payment `json:"payments,omitempty" gorm:"-"`
	Tenant   *tenantdomain.Tenant    `json:"tenant,omitempty" gorm:"-"`
}

func (Order) TableName() string { return "orders" }

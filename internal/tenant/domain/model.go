package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Tenant is a provisioned customer website. There is at most one per order.
type Tenant struct {
	ID        snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrderID   snowflake.ID      `json:"order_id" gorm:"not null;uniqueIndex:ux_tenants_order_id"`
	Subdomain string            `json:"subdomain" gorm:"type:text;not null;uniqueIndex:ux_tenants_subdomain"`
	Domain    string            `json:"domain" gorm:"type:text"`
	BrandName string            `json:"brand_name" gorm:"type:text;not null"`
	OwnerName string            `json:"owner_name" gorm:"type:text;not null"`
	IsActive  bool              `json:"is_active" gorm:"not null;default:true"`
	Config    datatypes.JSONMap `json:"config" gorm:"type:json"`
	LogoURL   string            `json:"logo_url" gorm:"column:logo_url;type:text"`
	CreatedAt time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time         `json:"updated_at" gorm:"not null"`
}

func (Tenant) TableName() string { return "tenants" }

const DefaultTheme = "default"

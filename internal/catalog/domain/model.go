package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Package is a sellable website plan. Price and MonthlyFee are in the smallest currency unit.
type Package struct {
	ID         snowflake.ID                `gorm:"primaryKey" json:"id"`
	Name       string                      `gorm:"not null" json:"name"`
	Tier       string                      `gorm:"not null" json:"tier"`
	Price      int64                       `gorm:"not null" json:"price"`
	MonthlyFee int64                       `gorm:"not null;default:0" json:"monthly_fee"`
	Features   datatypes.JSONSlice[string] `gorm:"type:json" json:"features"`
	IsActive   bool                        `gorm:"not null;default:true" json:"is_active"`
	SortOrder  int                         `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt  time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Package) TableName() string { return "packages" }

// DomainPrice is the yearly price of a domain extension such as ".com".
type DomainPrice struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Extension    string       `gorm:"not null;uniqueIndex:ux_domain_prices_extension" json:"extension"`
	Price        int64        `gorm:"not null" json:"price"`
	RenewalPrice int64        `gorm:"not null" json:"renewal_price"`
	IsActive     bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

func (DomainPrice) TableName() string { return "domain_prices" }

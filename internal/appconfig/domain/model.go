package domain

import (
	"strings"
	"time"
)

// singletonID is the fixed primary key of the config rows.
const singletonID = 1

// AppConfig holds storefront branding and bank transfer details.
type AppConfig struct {
	ID                int       `gorm:"primaryKey" json:"-"`
	AppName           string    `gorm:"not null" json:"app_name"`
	Tagline           string    `json:"tagline"`
	SupportEmail      string    `json:"support_email"`
	SupportPhone      string    `json:"support_phone"`
	BaseDomain        string    `gorm:"not null" json:"base_domain"`
	PublicURL         string    `gorm:"column:public_url;not null" json:"public_url"`
	AdminPath         string    `gorm:"not null" json:"admin_path"`
	BankName          string    `json:"bank_name"`
	BankAccountNumber string    `json:"bank_account_number"`
	BankAccountHolder string    `json:"bank_account_holder"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}

func (AppConfig) TableName() string { return "app_configs" }

// DefaultAppConfig is served until an admin saves settings.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		ID:         singletonID,
		AppName:    "SiteBuilder",
		BaseDomain: "localhost",
		PublicURL:  "http://localhost:8080",
		AdminPath:  "/admin",
	}
}

// SiteURL returns the public address of a tenant site.
func (c AppConfig) SiteURL(subdomain string) string {
	return "https://" + subdomain + "." + c.BaseDomain
}

// AdminURL returns the tenant back-office address.
func (c AppConfig) AdminURL(subdomain string) string {
	path := c.AdminPath
	if path == "" {
		path = "/admin"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.SiteURL(subdomain) + path
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	ID           int       `gorm:"primaryKey" json:"-"`
	SMTPHost     string    `gorm:"column:smtp_host" json:"smtp_host"`
	SMTPPort     int       `gorm:"column:smtp_port" json:"smtp_port"`
	SMTPUsername string    `gorm:"column:smtp_username" json:"smtp_username"`
	SMTPPassword string    `gorm:"column:smtp_password" json:"-"`
	FromName     string    `json:"from_name"`
	FromAddress  string    `json:"from_address"`
	IsActive     bool      `gorm:"not null;default:false" json:"is_active"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (EmailConfig) TableName() string { return "email_configs" }

// Usable reports whether the settings are complete enough to send mail.
func (c EmailConfig) Usable() bool {
	return c.IsActive && strings.TrimSpace(c.SMTPHost) != "" && c.SMTPPort > 0 && strings.TrimSpace(c.FromAddress) != ""
}

// EmailConfigView is returned to admins; the password is only reported as set or not.
type EmailConfigView struct {
	EmailConfig
	HasPassword bool `json:"has_password"`
}

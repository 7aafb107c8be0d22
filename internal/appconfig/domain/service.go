package domain

import (
	"context"
	"errors"
)

// Loader returns immutable snapshots of the singleton settings for one operation.
type Loader interface {
	AppSnapshot(ctx context.Context) (AppConfig, error)
	EmailSnapshot(ctx context.Context) (EmailConfig, error)
}

type UpdateAppConfigRequest struct {
	AppName           *string `json:"app_name"`
	Tagline           *string `json:"tagline"`
	SupportEmail      *string `json:"support_email"`
	SupportPhone      *string `json:"support_phone"`
	BaseDomain        *string `json:"base_domain"`
	PublicURL         *string `json:"public_url"`
	AdminPath         *string `json:"admin_path"`
	BankName          *string `json:"bank_name"`
	BankAccountNumber *string `json:"bank_account_number"`
	BankAccountHolder *string `json:"bank_account_holder"`
}

type UpdateEmailConfigRequest struct {
	SMTPHost     *string `json:"smtp_host"`
	SMTPPort     *int    `json:"smtp_port"`
	SMTPUsername *string `json:"smtp_username"`
	SMTPPassword *string `json:"smtp_password"`
	FromName     *string `json:"from_name"`
	FromAddress  *string `json:"from_address"`
	IsActive     *bool   `json:"is_active"`
}

type Service interface {
	Loader

	GetApp(ctx context.Context) (AppConfig, error)
	UpdateApp(ctx context.Context, req UpdateAppConfigRequest) (AppConfig, error)
	GetEmail(ctx context.Context) (EmailConfigView, error)
	UpdateEmail(ctx context.Context, req UpdateEmailConfigRequest) (EmailConfigView, error)
	// SendTestEmail delivers a probe message using the stored SMTP settings.
	SendTestEmail(ctx context.Context, to string) error
}

var (
	ErrInvalidAppName    = errors.New("invalid_app_name")
	ErrInvalidBaseDomain = errors.New("invalid_base_domain")
	ErrInvalidPublicURL  = errors.New("invalid_public_url")
	ErrInvalidSMTPPort   = errors.New("invalid_smtp_port")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrEmailNotActive    = errors.New("email_not_configured")
	ErrEmailDelivery     = errors.New("email_delivery_failed")
)

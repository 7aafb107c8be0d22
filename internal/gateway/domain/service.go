package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

type Service interface {
	ListConfigs(ctx context.Context) ([]ConfigSummary, error)
	UpsertConfig(ctx context.Context, req UpsertRequest) (*ConfigSummary, error)
	// Activate makes gateway the only active configuration.
	Activate(ctx context.Context, gateway string) (*ConfigSummary, error)
	Deactivate(ctx context.Context, gateway string) (*ConfigSummary, error)

	// ActiveGateway resolves the adapter for the single active configuration.
	ActiveGateway(ctx context.Context) (Adapter, error)
	// ParseWebhook verifies a native notification with the stored credentials of gateway.
	ParseWebhook(ctx context.Context, gateway string, payload []byte, headers http.Header) (*Callback, error)
}

type ConfigSummary struct {
	Gateway    string    `json:"gateway"`
	IsSandbox  bool      `json:"is_sandbox"`
	IsActive   bool      `json:"is_active"`
	Configured bool      `json:"configured"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type UpsertRequest struct {
	Gateway   string         `json:"gateway"`
	Config    map[string]any `json:"config"`
	IsSandbox *bool          `json:"is_sandbox"`
}

var (
	ErrInvalidGateway       = errors.New("invalid_gateway")
	ErrInvalidConfig        = errors.New("invalid_gateway_config")
	ErrNotFound             = errors.New("gateway_not_found")
	ErrNotConfigured        = errors.New("gateway_not_configured")
	ErrEncryptionKeyMissing = errors.New("encryption_key_missing")
	ErrInvalidRequest       = errors.New("invalid_payment_request")
	ErrInvalidSignature     = errors.New("invalid_signature")
	ErrInvalidPayload       = errors.New("invalid_payload")
	ErrWebhookUnsupported   = errors.New("webhook_unsupported")
	ErrRequestFailed        = errors.New("gateway_request_failed")
)

package domain

import (
	"context"
	"net/http"
)

// Adapter is the capability every gateway variant exposes.
type Adapter interface {
	Gateway() string
	CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentSession, error)
	// ParseWebhook verifies a native notification and normalizes it.
	ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*Callback, error)
}

// AdapterConfig is an immutable snapshot handed to a factory.
type AdapterConfig struct {
	Gateway   string
	Sandbox   bool
	Config    map[string]any
	PublicURL string
}

type AdapterFactory interface {
	Gateway() string
	NewAdapter(cfg AdapterConfig) (Adapter, error)
}

// ReadString returns a trimmed non-empty string value from a decrypted config.
func ReadString(cfg map[string]any, key string) (string, bool) {
	if cfg == nil {
		return "", false
	}
	raw, ok := cfg[key]
	if !ok {
		return "", false
	}
	value, ok := raw.(string)
	if !ok {
		return "", false
	}
	if value == "" {
		return "", false
	}
	return value, true
}

package manual

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/sitebuilder/internal/gateway/domain"
)

const RefPrefix = "MANUAL-"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Gateway() string {
	return domain.GatewayManual
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Adapter, error) {
	return &Adapter{publicURL: strings.TrimRight(cfg.PublicURL, "/")}, nil
}

// Adapter directs customers to the bank transfer confirmation page. No remote call is made.
type Adapter struct {
	publicURL string
}

func (a *Adapter) Gateway() string {
	return domain.GatewayManual
}

func (a *Adapter) CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentSession, error) {
	if req.Amount <= 0 || strings.TrimSpace(req.OrderNumber) == "" {
		return nil, domain.ErrInvalidRequest
	}
	return &domain.PaymentSession{
		GatewayRef:  RefPrefix + ulid.Make().String(),
		GatewayName: domain.GatewayManual,
		PaymentURL:  a.publicURL + "/payment/confirm?order=" + url.QueryEscape(req.OrderNumber),
	}, nil
}

func (a *Adapter) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*domain.Callback, error) {
	return nil, domain.ErrWebhookUnsupported
}

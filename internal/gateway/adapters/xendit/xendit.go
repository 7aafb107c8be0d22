package xendit

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smallbiznis/sitebuilder/internal/gateway/adapters"
	"github.com/smallbiznis/sitebuilder/internal/gateway/domain"
)

const (
	BaseURL             = "https://api.xendit.co"
	CallbackTokenHeader = "X-Callback-Token"
)

type Factory struct {
	now func() time.Time
}

func NewFactory() *Factory {
	return &Factory{now: time.Now}
}

func (f *Factory) Gateway() string {
	return domain.GatewayXendit
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Adapter, error) {
	secretKey, ok := domain.ReadString(cfg.Config, "secret_key")
	if !ok {
		return nil, domain.ErrInvalidConfig
	}
	callbackToken, _ := domain.ReadString(cfg.Config, "callback_token")

	baseURL := BaseURL
	if override, ok := domain.ReadString(cfg.Config, "base_url"); ok {
		baseURL = strings.TrimRight(override, "/")
	}

	return &Adapter{
		callbackToken: callbackToken,
		publicURL:     cfg.PublicURL,
		client:        adapters.NewClient(baseURL).SetBasicAuth(secretKey, ""),
		now:           f.now,
	}, nil
}

type Adapter struct {
	callbackToken string
	publicURL     string
	client        *resty.Client
	now           func() time.Time
}

func (a *Adapter) Gateway() string {
	return domain.GatewayXendit
}

type invoiceRequest struct {
	ExternalID         string   `json:"external_id"`
	Amount             int64    `json:"amount"`
	PayerEmail         string   `json:"payer_email,omitempty"`
	Description        string   `json:"description"`
	Customer           customer `json:"customer"`
	SuccessRedirectURL string   `json:"success_redirect_url,omitempty"`
	Currency           string   `json:"currency"`
}

type customer struct {
	GivenNames   string `json:"given_names"`
	Email        string `json:"email,omitempty"`
	MobileNumber string `json:"mobile_number,omitempty"`
}

type invoiceResponse struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	InvoiceURL string `json:"invoice_url"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

func (a *Adapter) CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentSession, error) {
	if req.Amount <= 0 || strings.TrimSpace(req.OrderNumber) == "" {
		return nil, domain.ErrInvalidRequest
	}

	ref := adapters.SessionRef(req.OrderNumber, a.now())
	body := invoiceRequest{
		ExternalID:  ref,
		Amount:      req.Amount,
		PayerEmail:  req.CustomerEmail,
		Description: req.Description,
		Currency:    "IDR",
		Customer: customer{
			GivenNames:   req.CustomerName,
			Email:        req.CustomerEmail,
			MobileNumber: req.CustomerPhone,
		},
	}
	if a.publicURL != "" {
		body.SuccessRedirectURL = a.publicURL + "/orders/" + req.OrderNumber
	}

	var out invoiceResponse
	resp, err := adapters.Request(ctx, a.client).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/v2/invoices")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}
	if resp.IsError() || out.InvoiceURL == "" {
		return nil, fmt.Errorf("%w: xendit status %d %s %s", domain.ErrRequestFailed, resp.StatusCode(), out.ErrorCode, out.Message)
	}

	return &domain.PaymentSession{
		GatewayRef:  ref,
		GatewayName: domain.GatewayXendit,
		PaymentURL:  out.InvoiceURL,
	}, nil
}

type invoiceCallback struct {
	ID             string `json:"id"`
	ExternalID     string `json:"external_id"`
	Status         string `json:"status"`
	PaymentMethod  string `json:"payment_method"`
	PaymentChannel string `json:"payment_channel"`
}

func (a *Adapter) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*domain.Callback, error) {
	token := strings.TrimSpace(headers.Get(CallbackTokenHeader))
	if a.callbackToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(a.callbackToken)) != 1 {
		return nil, domain.ErrInvalidSignature
	}

	var cb invoiceCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(cb.ExternalID) == "" {
		return nil, domain.ErrInvalidPayload
	}

	method := cb.PaymentMethod
	if cb.PaymentChannel != "" {
		method = strings.ToLower(strings.TrimSpace(method + " " + cb.PaymentChannel))
	}

	return &domain.Callback{
		GatewayRef: cb.ExternalID,
		Status:     mapStatus(cb.Status),
		Method:     method,
	}, nil
}

func mapStatus(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PAID", "SETTLED":
		return "paid"
	case "PENDING":
		return "pending"
	case "EXPIRED":
		return "expired"
	default:
		return "failed"
	}
}

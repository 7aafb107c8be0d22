package midtrans

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
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
	SandboxBaseURL    = "https://app.sandbox.midtrans.com"
	ProductionBaseURL = "https://app.midtrans.com"
)

type Factory struct {
	now func() time.Time
}

func NewFactory() *Factory {
	return &Factory{now: time.Now}
}

func (f *Factory) Gateway() string {
	return domain.GatewayMidtrans
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Adapter, error) {
	serverKey, ok := domain.ReadString(cfg.Config, "server_key")
	if !ok {
		return nil, domain.ErrInvalidConfig
	}

	baseURL := ProductionBaseURL
	if cfg.Sandbox {
		baseURL = SandboxBaseURL
	}
	if override, ok := domain.ReadString(cfg.Config, "base_url"); ok {
		baseURL = strings.TrimRight(override, "/")
	}

	client := adapters.NewClient(baseURL).SetBasicAuth(serverKey, "")
	return &Adapter{
		serverKey: serverKey,
		client:    client,
		now:       f.now,
	}, nil
}

type Adapter struct {
	serverKey string
	client    *resty.Client
	now       func() time.Time
}

func (a *Adapter) Gateway() string {
	return domain.GatewayMidtrans
}

type snapRequest struct {
	TransactionDetails transactionDetails `json:"transaction_details"`
	CustomerDetails    customerDetails    `json:"customer_details"`
	ItemDetails        []itemDetail       `json:"item_details,omitempty"`
}

type transactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type customerDetails struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type itemDetail struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

type snapResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

func (a *Adapter) CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentSession, error) {
	if req.Amount <= 0 || strings.TrimSpace(req.OrderNumber) == "" {
		return nil, domain.ErrInvalidRequest
	}

	ref := adapters.SessionRef(req.OrderNumber, a.now())
	body := snapRequest{
		TransactionDetails: transactionDetails{OrderID: ref, GrossAmount: req.Amount},
		CustomerDetails: customerDetails{
			FirstName: req.CustomerName,
			Email:     req.CustomerEmail,
			Phone:     req.CustomerPhone,
		},
		ItemDetails: []itemDetail{{
			ID:       req.OrderNumber,
			Price:    req.Amount,
			Quantity: 1,
			Name:     truncate(req.Description, 50),
		}},
	}

	var out snapResponse
	resp, err := adapters.Request(ctx, a.client).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/snap/v1/transactions")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}
	if resp.IsError() || out.RedirectURL == "" {
		return nil, fmt.Errorf("%w: midtrans status %d %s", domain.ErrRequestFailed, resp.StatusCode(), strings.Join(out.ErrorMessages, "; "))
	}

	return &domain.PaymentSession{
		GatewayRef:  ref,
		GatewayName: domain.GatewayMidtrans,
		PaymentURL:  out.RedirectURL,
	}, nil
}

type notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
}

func (a *Adapter) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*domain.Callback, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(n.OrderID) == "" {
		return nil, domain.ErrInvalidPayload
	}

	expected := Signature(n.OrderID, n.StatusCode, n.GrossAmount, a.serverKey)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(n.SignatureKey))) != 1 {
		return nil, domain.ErrInvalidSignature
	}

	return &domain.Callback{
		GatewayRef: n.OrderID,
		Status:     mapStatus(n.TransactionStatus, n.FraudStatus),
		Method:     n.PaymentType,
	}, nil
}

// Signature is sha512(order_id + status_code + gross_amount + server_key) in hex.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func mapStatus(transactionStatus, fraudStatus string) string {
	switch strings.ToLower(strings.TrimSpace(transactionStatus)) {
	case "settlement":
		return "paid"
	case "capture":
		if strings.EqualFold(fraudStatus, "challenge") {
			return "pending"
		}
		return "paid"
	case "pending", "authorize":
		return "pending"
	case "expire":
		return "expired"
	default:
		return "failed"
	}
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

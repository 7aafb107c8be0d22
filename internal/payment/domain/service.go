package domain

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	gatewaydomain "github.com/smallbiznis/sitebuilder/internal/gateway/domain"
	"github.com/smallbiznis/sitebuilder/pkg/db/pagination"
)

type Service interface {
	// HandleCallback applies a normalized gateway notification. Redelivery is a no-op success.
	HandleCallback(ctx context.Context, cb gatewaydomain.Callback) (*Payment, error)
	// HandleWebhook verifies a gateway-native notification and reconciles it.
	HandleWebhook(ctx context.Context, gateway string, payload []byte, headers http.Header) (*Payment, error)
	// ConfirmManualTransfer stores a transfer proof and moves the order to pending verification.
	ConfirmManualTransfer(ctx context.Context, req ManualProofRequest) (*Payment, error)
	// Verify marks a payment paid with the given amount, used for manual proofs.
	Verify(ctx context.Context, id string, req VerifyRequest) (*Payment, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	ExpireStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type ManualProofRequest struct {
	OrderNumber string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type VerifyRequest struct {
	Amount *int64 `json:"amount"`
	Method string `json:"method"`
}

type ListRequest struct {
	pagination.Pagination

	Status  string `form:"status"`
	OrderID string `form:"order_id"`
}

type ListResponse struct {
	Payments []Payment           `json:"payments"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrMissingGatewayRef = errors.New("missing_gateway_ref")
	ErrInvalidStatus     = errors.New("invalid_payment_status")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrMissingOrder      = errors.New("missing_order_number")
	ErrMissingProof      = errors.New("missing_proof_file")
	ErrInvalidProofType  = errors.New("invalid_proof_type")
	ErrProofTooLarge     = errors.New("proof_too_large")
	ErrNotFound          = errors.New("payment_not_found")
	ErrOrderNotFound     = errors.New("order_not_found")
)

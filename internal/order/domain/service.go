package domain

import (
	"context"
	"errors"

	paymentdomain "github.com/smallbiznis/sitebuilder/internal/payment/domain"
	tenantdomain "github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	"github.com/smallbiznis/sitebuilder/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*CreateResult, error)
	// Get resolves an order by snowflake id first, then by order number.
	Get(ctx context.Context, idOrNumber string) (*Order, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// Update applies admin changes. Moving to active runs tenant provisioning.
	Update(ctx context.Context, id string, req UpdateRequest) (*Order, error)
	// Provision runs tenant provisioning for an order on demand.
	Provision(ctx context.Context, id string) (tenantdomain.ProvisionResult, error)
	// Receipt renders a PDF for the latest paid payment of an order.
	Receipt(ctx context.Context, idOrNumber string) (*Receipt, error)
}

type Receipt struct {
	FileName string
	Content  []byte
}

type CreateRequest struct {
	ClientName         string   `json:"clientName"`
	BrandName          string   `json:"brandName"`
	Email              string   `json:"email"`
	Phone              string   `json:"phone"`
	Address            string   `json:"address"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	SubdomainRequested string   `json:"subdomainRequested"`
	DomainRequested    string   `json:"domainRequested"`
	PackageID          string   `json:"packageId"`
	PaymentType        string   `json:"paymentType"`
	Notes              string   `json:"notes"`
}

type CreateResult struct {
	Order      *Order                 `json:"order"`
	Payment    *paymentdomain.Payment `json:"payment"`
	PaymentURL string                 `json:"paymentUrl"`
}

type ListRequest struct {
	pagination.Pagination

	Status string `form:"status"`
	Email  string `form:"email"`
	Search string `form:"search"`
}

type ListResponse struct {
	Orders   []Order             `json:"orders"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type UpdateRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

// FieldError names the intake field that failed validation.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *FieldError) Unwrap() error { return e.Err }

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrRequired             = errors.New("required")
	ErrInvalidEmail         = errors.New("invalid_email")
	ErrInvalidPaymentType   = errors.New("invalid_payment_type")
	ErrInvalidStatus        = errors.New("invalid_order_status")
	ErrInvalidSubdomain     = errors.New("invalid_subdomain")
	ErrNotFound             = errors.New("order_not_found")
	ErrPackageNotFound      = errors.New("package_not_found")
	ErrOrderNumberExhausted = errors.New("order_number_conflict")
	ErrProvisioningFailed   = errors.New("provisioning_failed")
	ErrReceiptUnavailable   = errors.New("receipt_unavailable")
)

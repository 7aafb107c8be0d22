package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebuilder/pkg/db/pagination"
)

// ProvisionResult reports the outcome of provisioning. Provision never returns an error value;
// failures are carried in Err.
type ProvisionResult struct {
	Success   bool    `json:"success"`
	Tenant    *Tenant `json:"tenant,omitempty"`
	Error     string  `json:"error,omitempty"`
	EmailSent bool    `json:"emailSent"`
	// Created is false when an existing tenant satisfied the request.
	Created bool  `json:"-"`
	Err     error `json:"-"`
}

// Provisioner creates the tenant and login for an order exactly once.
type Provisioner interface {
	Provision(ctx context.Context, orderID snowflake.ID) ProvisionResult
}

type Service interface {
	Provisioner

	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, id string) (*Tenant, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Tenant, error)
}

type ListRequest struct {
	pagination.Pagination

	Search string `form:"search"`
	Active *bool  `form:"is_active"`
}

type ListResponse struct {
	Tenants  []Tenant            `json:"tenants"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type UpdateRequest struct {
	IsActive *bool          `json:"isActive"`
	Domain   *string        `json:"domain"`
	LogoURL  *string        `json:"logoUrl"`
	Config   map[string]any `json:"config"`
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("tenant_not_found")
	ErrOrderNotFound    = errors.New("order_not_found")
	ErrMissingSubdomain = errors.New("missing_subdomain")
	ErrInvalidSubdomain = errors.New("invalid_subdomain")
	ErrInvalidDomain    = errors.New("invalid_domain")
	ErrSubdomainTaken   = errors.New("subdomain already taken")
)

package domain

import (
	"context"
	"errors"
)

type PackageRequest struct {
	Name       string   `json:"name"`
	Tier       string   `json:"tier"`
	Price      *int64   `json:"price"`
	MonthlyFee *int64   `json:"monthly_fee"`
	Features   []string `json:"features"`
	IsActive   *bool    `json:"is_active"`
	SortOrder  *int     `json:"sort_order"`
}

type DomainPriceRequest struct {
	Extension    string `json:"extension"`
	Price        *int64 `json:"price"`
	RenewalPrice *int64 `json:"renewal_price"`
	IsActive     *bool  `json:"is_active"`
}

type Service interface {
	ListPackages(ctx context.Context, activeOnly bool) ([]Package, error)
	GetPackage(ctx context.Context, id string) (Package, error)
	// GetActivePackage resolves a package that can still be ordered.
	GetActivePackage(ctx context.Context, id string) (Package, error)
	CreatePackage(ctx context.Context, req PackageRequest) (Package, error)
	UpdatePackage(ctx context.Context, id string, req PackageRequest) (Package, error)
	DeletePackage(ctx context.Context, id string) error

	ListDomainPrices(ctx context.Context, activeOnly bool) ([]DomainPrice, error)
	CreateDomainPrice(ctx context.Context, req DomainPriceRequest) (DomainPrice, error)
	UpdateDomainPrice(ctx context.Context, id string, req DomainPriceRequest) (DomainPrice, error)
	DeleteDomainPrice(ctx context.Context, id string) error
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidTier      = errors.New("invalid_tier")
	ErrInvalidPrice     = errors.New("invalid_price")
	ErrInvalidExtension = errors.New("invalid_extension")
	ErrNotFound         = errors.New("not_found")
	ErrPackageInUse     = errors.New("package_in_use")
	ErrDuplicateDomain  = errors.New("domain_extension_exists")
)

package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	authdomain "github.com/smallbiznis/sitebuilder/internal/auth/domain"
	"github.com/smallbiznis/sitebuilder/internal/auth/password"
	catalogdomain "github.com/smallbiznis/sitebuilder/internal/catalog/domain"
	orderdomain "github.com/smallbiznis/sitebuilder/internal/order/domain"
	"github.com/smallbiznis/sitebuilder/internal/providers/email"
	"github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	dbpkg "github.com/smallbiznis/sitebuilder/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	generatedPasswordLength = 8
	maxSubdomainLength      = 63
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// errUserRaced marks a unique violation on the user email, raised when another
// provisioning run registered the same owner between our lookup and insert.
var errUserRaced = errors.New("owner account created concurrently")

// credentials carries what the welcome email needs once the transaction commits.
type credentials struct {
	email    string
	password string
}

// Provision is idempotent: an order that already owns a tenant reports success without side effects.
func (s *Service) Provision(ctx context.Context, orderID snowflake.ID) domain.ProvisionResult {
	log := s.log.With(zap.String("order_id", orderID.String()))

	result := s.provision(ctx, orderID)
	switch {
	case result.Success && result.Created:
		s.metrics.RecordTenantProvisioned(ctx, "created")
	case result.Success:
		s.metrics.RecordTenantProvisioned(ctx, "existing")
	case errors.Is(result.Err, domain.ErrSubdomainTaken):
		s.metrics.RecordTenantProvisioned(ctx, "conflict")
		log.Warn("provisioning conflict", zap.Error(result.Err))
	default:
		s.metrics.RecordTenantProvisioned(ctx, "failed")
		log.Error("provisioning failed", zap.Error(result.Err))
	}
	return result
}

func (s *Service) provision(ctx context.Context, orderID snowflake.ID) domain.ProvisionResult {
	order, err := s.orderRepo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return failed(err)
	}
	if order == nil {
		return failed(domain.ErrOrderNotFound)
	}

	if existing, err := s.repo.FindByOrderID(ctx, s.db, order.ID); err != nil {
		return failed(err)
	} else if existing != nil {
		return domain.ProvisionResult{Success: true, Tenant: existing}
	}

	subdomain, err := SubdomainFor(order.SubdomainRequested, order.BrandName)
	if err != nil {
		return failed(err)
	}

	if owner, err := s.repo.FindBySubdomain(ctx, s.db, subdomain); err != nil {
		return failed(err)
	} else if owner != nil {
		if owner.OrderID == order.ID {
			return domain.ProvisionResult{Success: true, Tenant: owner}
		}
		return failed(domain.ErrSubdomainTaken)
	}

	pkg, err := s.catalogRepo.FindPackageByID(ctx, s.db, order.PackageID)
	if err != nil {
		return failed(err)
	}
	if pkg == nil {
		return failed(catalogdomain.ErrNotFound)
	}

	tenant, creds, err := s.create(ctx, order, pkg, subdomain)
	if errors.Is(err, errUserRaced) {
		s.log.Info("owner account appeared during provisioning, retrying", zap.String("order_id", order.ID.String()))
		tenant, creds, err = s.create(ctx, order, pkg, subdomain)
	}
	if err != nil {
		if dbpkg.IsDuplicateKeyErr(err) && !errors.Is(err, errUserRaced) {
			return s.resolveConflict(ctx, order.ID)
		}
		return failed(err)
	}

	s.log.Info("tenant provisioned",
		zap.String("order_number", order.OrderNumber),
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("subdomain", tenant.Subdomain),
		zap.Bool("new_user", creds.password != ""),
	)

	return domain.ProvisionResult{
		Success:   true,
		Tenant:    tenant,
		Created:   true,
		EmailSent: s.sendCredentials(ctx, order, tenant, creds),
	}
}

// create writes the user, tenant and order activation in one transaction.
func (s *Service) create(ctx context.Context, order *orderdomain.Order, pkg *catalogdomain.Package, subdomain string) (*domain.Tenant, credentials, error) {
	now := s.clock.Now()
	creds := credentials{email: order.Email}
	if normalized, err := authdomain.NormalizeEmail(order.Email); err == nil {
		creds.email = normalized
	}

	tenant := &domain.Tenant{
		ID:        s.genID.Generate(),
		OrderID:   order.ID,
		Subdomain: subdomain,
		Domain:    strings.ToLower(strings.TrimSpace(order.DomainRequested)),
		BrandName: order.BrandName,
		OwnerName: order.ClientName,
		IsActive:  true,
		Config:    defaultConfig(pkg),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.authRepo.FindByEmail(ctx, tx, creds.email)
		if err != nil {
			return err
		}
		if user == nil {
			plain, err := password.Generate(generatedPasswordLength)
			if err != nil {
				return err
			}
			hashed, err := password.Hash(plain)
			if err != nil {
				return err
			}
			user = &authdomain.User{
				ID:           s.genID.Generate(),
				Email:        creds.email,
				Name:         order.ClientName,
				PasswordHash: hashed,
				Role:         authdomain.RoleClient,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.authRepo.Insert(ctx, tx, user); err != nil {
				if dbpkg.IsDuplicateKeyErr(err) {
					return fmt.Errorf("%w: %w", errUserRaced, err)
				}
				return err
			}
			creds.password = plain
		}

		if err := s.repo.Insert(ctx, tx, tenant); err != nil {
			return err
		}
		return s.orderRepo.UpdateStatus(ctx, tx, order.ID, orderdomain.StatusActive, now)
	})
	if err != nil {
		return nil, credentials{}, err
	}
	return tenant, creds, nil
}

// resolveConflict decides whether a unique violation was a concurrent run for the same order.
func (s *Service) resolveConflict(ctx context.Context, orderID snowflake.ID) domain.ProvisionResult {
	if existing, err := s.repo.FindByOrderID(ctx, s.db, orderID); err == nil && existing != nil {
		return domain.ProvisionResult{Success: true, Tenant: existing}
	}
	return failed(domain.ErrSubdomainTaken)
}

func (s *Service) sendCredentials(ctx context.Context, order *orderdomain.Order, tenant *domain.Tenant, creds credentials) bool {
	app, err := s.appConfig.AppSnapshot(ctx)
	if err != nil {
		s.log.Warn("app config unavailable for credentials email", zap.Error(err))
		return false
	}
	if s.sender == nil {
		return false
	}

	return s.sender.Deliver(ctx, creds.email, email.TemplateTenantCredentials, map[string]any{
		"app_name":      app.AppName,
		"owner_name":    order.ClientName,
		"brand_name":    tenant.BrandName,
		"site_url":      app.SiteURL(tenant.Subdomain),
		"admin_url":     app.AdminURL(tenant.Subdomain),
		"login_email":   creds.email,
		"password":      creds.password,
		"support_email": app.SupportEmail,
	})
}

// SubdomainFor picks the requested subdomain, falling back to a slug of the brand name.
func SubdomainFor(requested, brandName string) (string, error) {
	source := strings.TrimSpace(requested)
	if source == "" {
		source = strings.TrimSpace(brandName)
	}
	if source == "" {
		return "", domain.ErrMissingSubdomain
	}

	subdomain := slug.Make(source)
	if len(subdomain) > maxSubdomainLength {
		subdomain = strings.Trim(subdomain[:maxSubdomainLength], "-")
	}
	if subdomain == "" || !subdomainPattern.MatchString(subdomain) {
		return "", domain.ErrInvalidSubdomain
	}
	return subdomain, nil
}

func defaultConfig(pkg *catalogdomain.Package) datatypes.JSONMap {
	features := []string{}
	if pkg.Features != nil {
		features = append(features, pkg.Features...)
	}
	return datatypes.JSONMap{
		"theme":       domain.DefaultTheme,
		"packageTier": pkg.Tier,
		"features":    features,
	}
}

func failed(err error) domain.ProvisionResult {
	return domain.ProvisionResult{Success: false, Error: err.Error(), Err: err}
}

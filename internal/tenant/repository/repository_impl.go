package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	"github.com/smallbiznis/sitebuilder/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const tenantColumns = `id, order_id, subdomain, domain, brand_name, owner_name, is_active, config, logo_url, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tenant *domain.Tenant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tenants (`+tenantColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tenant.ID,
		tenant.OrderID,
		tenant.Subdomain,
		tenant.Domain,
		tenant.BrandName,
		tenant.OwnerName,
		tenant.IsActive,
		tenant.Config,
		tenant.LogoURL,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, tenant *domain.Tenant) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tenants
		 SET domain = ?, is_active = ?, config = ?, logo_url = ?, updated_at = ?
		 WHERE id = ?`,
		tenant.Domain,
		tenant.IsActive,
		tenant.Config,
		tenant.LogoURL,
		tenant.UpdatedAt,
		tenant.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Tenant, error) {
	return r.findOne(ctx, db, `id = ?`, id)
}

func (r *repo) FindByOrderID(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.Tenant, error) {
	return r.findOne(ctx, db, `order_id = ?`, orderID)
}

func (r *repo) FindBySubdomain(ctx context.Context, db *gorm.DB, subdomain string) (*domain.Tenant, error) {
	return r.findOne(ctx, db, `subdomain = ?`, subdomain)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.Tenant, error) {
	var item domain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT `+tenantColumns+`
		 FROM tenants
		 WHERE `+where+`
		 LIMIT 1`,
		arg,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, opts ...option.QueryOption) ([]domain.Tenant, error) {
	stmt := db.WithContext(ctx).Model(&domain.Tenant{})
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	var items []domain.Tenant
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, activeOnly bool) (int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Tenant{})
	if activeOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

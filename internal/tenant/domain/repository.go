package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebuilder/pkg/db/option"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	Update(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tenant, error)
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*Tenant, error)
	FindBySubdomain(ctx context.Context, db *gorm.DB, subdomain string) (*Tenant, error)
	List(ctx context.Context, db *gorm.DB, opts ...option.QueryOption) ([]Tenant, error)
	Count(ctx context.Context, db *gorm.DB, activeOnly bool) (int64, error)
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPackage(ctx context.Context, db *gorm.DB, pkg *Package) error
	UpdatePackage(ctx context.Context, db *gorm.DB, pkg *Package) error
	DeletePackage(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindPackageByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Package, error)
	ListPackages(ctx context.Context, db *gorm.DB, activeOnly bool) ([]Package, error)
	CountOrdersForPackage(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)

	InsertDomainPrice(ctx context.Context, db *gorm.DB, price *DomainPrice) error
	UpdateDomainPrice(ctx context.Context, db *gorm.DB, price *DomainPrice) error
	DeleteDomainPrice(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindDomainPriceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*DomainPrice, error)
	ListDomainPrices(ctx context.Context, db *gorm.DB, activeOnly bool) ([]DomainPrice, error)
}

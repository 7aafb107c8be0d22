package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebuilder/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPackage(ctx context.Context, db *gorm.DB, pkg *domain.Package) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO packages (id, name, tier, price, monthly_fee, features, is_active, sort_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pkg.ID,
		pkg.Name,
		pkg.Tier,
		pkg.Price,
		pkg.MonthlyFee,
		pkg.Features,
		pkg.IsActive,
		pkg.SortOrder,
		pkg.CreatedAt,
		pkg.UpdatedAt,
	).Error
}

func (r *repo) UpdatePackage(ctx context.Context, db *gorm.DB, pkg *domain.Package) error {
	return db.WithContext(ctx).Exec(
		`UPDATE packages
		 SET name = ?, tier = ?, price = ?, monthly_fee = ?, features = ?, is_active = ?, sort_order = ?, updated_at = ?
		 WHERE id = ?`,
		pkg.Name,
		pkg.Tier,
		pkg.Price,
		pkg.MonthlyFee,
		pkg.Features,
		pkg.IsActive,
		pkg.SortOrder,
		pkg.UpdatedAt,
		pkg.ID,
	).Error
}

func (r *repo) DeletePackage(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM packages WHERE id = ?`, id).Error
}

func (r *repo) FindPackageByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Package, error) {
	var pkg domain.Package
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, tier, price, monthly_fee, features, is_active, sort_order, created_at, updated_at
		 FROM packages WHERE id = ?`,
		id,
	).Scan(&pkg).Error
	if err != nil {
		return nil, err
	}
	if pkg.ID == 0 {
		return nil, nil
	}
	return &pkg, nil
}

func (r *repo) ListPackages(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.Package, error) {
	var items []domain.Package
	stmt := db.WithContext(ctx).Model(&domain.Package{})
	if activeOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	if err := stmt.Order("sort_order asc, price asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountOrdersForPackage(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(1) FROM orders WHERE package_id = ?`, id).Scan(&count).Error
	return count, err
}

func (r *repo) InsertDomainPrice(ctx context.Context, db *gorm.DB, price *domain.DomainPrice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO domain_prices (id, extension, price, renewal_price, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		price.ID,
		price.Extension,
		price.Price,
		price.RenewalPrice,
		price.IsActive,
		price.CreatedAt,
		price.UpdatedAt,
	).Error
}

func (r *repo) UpdateDomainPrice(ctx context.Context, db *gorm.DB, price *domain.DomainPrice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE domain_prices
		 SET extension = ?, price = ?, renewal_price = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		price.Extension,
		price.Price,
		price.RenewalPrice,
		price.IsActive,
		price.UpdatedAt,
		price.ID,
	).Error
}

func (r *repo) DeleteDomainPrice(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM domain_prices WHERE id = ?`, id).Error
}

func (r *repo) FindDomainPriceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.DomainPrice, error) {
	var price domain.DomainPrice
	err := db.WithContext(ctx).Raw(
		`SELECT id, extension, price, renewal_price, is_active, created_at, updated_at
		 FROM domain_prices WHERE id = ?`,
		id,
	).Scan(&price).Error
	if err != nil {
		return nil, err
	}
	if price.ID == 0 {
		return nil, nil
	}
	return &price, nil
}

func (r *repo) ListDomainPrices(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.DomainPrice, error) {
	var items []domain.DomainPrice
	stmt := db.WithContext(ctx).Model(&domain.DomainPrice{})
	if activeOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	if err := stmt.Order("price asc, extension asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

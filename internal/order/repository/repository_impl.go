package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebuilder/internal/order/domain"
	"github.com/smallbiznis/sitebuilder/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const orderColumns = `id, order_number, client_name, brand_name, email, phone, address, latitude, longitude,
	subdomain_requested, domain_requested, package_id, payment_type, amount, status, notes, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.OrderNumber,
		order.ClientName,
		order.BrandName,
		order.Email,
		order.Phone,
		order.Address,
		order.Latitude,
		order.Longitude,
		order.SubdomainRequested,
		order.DomainRequested,
		order.PackageID,
		order.PaymentType,
		order.Amount,
		order.Status,
		order.Notes,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return r.findOne(ctx, db, `id = ?`, id)
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, orderNumber string) (*domain.Order, error) {
	return r.findOne(ctx, db, `order_number = ?`, orderNumber)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.Order, error) {
	var item domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderColumns+`
		 FROM orders
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

func (r *repo) List(ctx context.Context, db *gorm.DB, opts ...option.QueryOption) ([]domain.Order, error) {
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	var items []domain.Order
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		updatedAt,
		id,
	).Error
}

func (r *repo) UpdateNotes(ctx context.Context, db *gorm.DB, id snowflake.ID, notes string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET notes = ?, updated_at = ? WHERE id = ?`,
		notes,
		updatedAt,
		id,
	).Error
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS total FROM orders GROUP BY status`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

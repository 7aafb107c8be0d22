package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/sitebuilder/internal/gateway/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const configColumns = `id, gateway, config, is_sandbox, is_active, created_at, updated_at`

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Config, error) {
	var configs []domain.Config
	err := db.WithContext(ctx).Raw(
		`SELECT ` + configColumns + `
		 FROM payment_gateway_configs
		 ORDER BY gateway`,
	).Scan(&configs).Error
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, gateway string) (*domain.Config, error) {
	var item domain.Config
	err := db.WithContext(ctx).Raw(
		`SELECT `+configColumns+`
		 FROM payment_gateway_configs
		 WHERE gateway = ?
		 LIMIT 1`,
		gateway,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB) (*domain.Config, error) {
	var item domain.Config
	err := db.WithContext(ctx).Raw(
		`SELECT ` + configColumns + `
		 FROM payment_gateway_configs
		 WHERE is_active = TRUE
		 ORDER BY updated_at DESC
		 LIMIT 1`,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, cfg *domain.Config) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_gateway_configs (
			id, gateway, config, is_sandbox, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (gateway)
		DO UPDATE SET config = EXCLUDED.config,
			is_sandbox = EXCLUDED.is_sandbox,
			updated_at = EXCLUDED.updated_at`,
		cfg.ID,
		cfg.Gateway,
		cfg.Config,
		cfg.IsSandbox,
		cfg.IsActive,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	).Error
}

func (r *repo) DeactivateAll(ctx context.Context, db *gorm.DB, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_gateway_configs
		 SET is_active = FALSE, updated_at = ?
		 WHERE is_active = TRUE`,
		updatedAt,
	).Error
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, gateway string, isActive bool, updatedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payment_gateway_configs
		 SET is_active = ?, updated_at = ?
		 WHERE gateway = ?`,
		isActive,
		updatedAt,
		gateway,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

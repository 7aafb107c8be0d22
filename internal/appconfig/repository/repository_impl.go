package repository

import (
	"context"

	"github.com/smallbiznis/sitebuilder/internal/appconfig/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindAppConfig(ctx context.Context, db *gorm.DB) (*domain.AppConfig, error) {
	var cfg domain.AppConfig
	err := db.WithContext(ctx).Raw(
		`SELECT id, app_name, tagline, support_email, support_phone, base_domain, public_url, admin_path,
		        bank_name, bank_account_number, bank_account_holder, updated_at
		 FROM app_configs WHERE id = 1`,
	).Scan(&cfg).Error
	if err != nil {
		return nil, err
	}
	if cfg.ID == 0 {
		return nil, nil
	}
	return &cfg, nil
}

func (r *repo) SaveAppConfig(ctx context.Context, db *gorm.DB, cfg *domain.AppConfig) error {
	cfg.ID = 1
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(cfg).Error
}

func (r *repo) FindEmailConfig(ctx context.Context, db *gorm.DB) (*domain.EmailConfig, error) {
	var cfg domain.EmailConfig
	err := db.WithContext(ctx).Raw(
		`SELECT id, smtp_host, smtp_port, smtp_username, smtp_password, from_name, from_address, is_active, updated_at
		 FROM email_configs WHERE id = 1`,
	).Scan(&cfg).Error
	if err != nil {
		return nil, err
	}
	if cfg.ID == 0 {
		return nil, nil
	}
	return &cfg, nil
}

func (r *repo) SaveEmailConfig(ctx context.Context, db *gorm.DB, cfg *domain.EmailConfig) error {
	cfg.ID = 1
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(cfg).Error
}

package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindAppConfig(ctx context.Context, db *gorm.DB) (*AppConfig, error)
	SaveAppConfig(ctx context.Context, db *gorm.DB, cfg *AppConfig) error
	FindEmailConfig(ctx context.Context, db *gorm.DB) (*EmailConfig, error)
	SaveEmailConfig(ctx context.Context, db *gorm.DB, cfg *EmailConfig) error
}

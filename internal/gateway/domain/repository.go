package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	List(ctx context.Context, db *gorm.DB) ([]Config, error)
	Find(ctx context.Context, db *gorm.DB, gateway string) (*Config, error)
	FindActive(ctx context.Context, db *gorm.DB) (*Config, error)
	Upsert(ctx context.Context, db *gorm.DB, cfg *Config) error
	DeactivateAll(ctx context.Context, db *gorm.DB, updatedAt time.Time) error
	SetActive(ctx context.Context, db *gorm.DB, gateway string, isActive bool, updatedAt time.Time) (bool, error)
}

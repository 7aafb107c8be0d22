package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *TrafficLog) error
	CountSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error)
	CountDistinctIPSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error)
	TopPathsSince(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]Count, error)
	TopReferrersSince(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]Count, error)
	DailySince(ctx context.Context, db *gorm.DB, since time.Time) ([]Count, error)
}

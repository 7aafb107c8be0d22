package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebuilder/pkg/db/option"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindByNumber(ctx context.Context, db *gorm.DB, orderNumber string) (*Order, error)
	List(ctx context.Context, db *gorm.DB, opts ...option.QueryOption) ([]Order, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, updatedAt time.Time) error
	UpdateNotes(ctx context.Context, db *gorm.DB, id snowflake.ID, notes string, updatedAt time.Time) error
	CountByStatus(ctx context.Context, db *gorm.DB) (map[string]int64, error)
}

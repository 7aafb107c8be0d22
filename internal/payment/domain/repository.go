package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebuilder/pkg/db/option"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByGatewayRef(ctx context.Context, db *gorm.DB, ref string) (*Payment, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]Payment, error)
	List(ctx context.Context, db *gorm.DB, opts ...option.QueryOption) ([]Payment, error)
	UpdateSettlement(ctx context.Context, db *gorm.DB, payment *Payment) error
	// ListStalePending returns gateway payments still pending that were created before cutoff.
	ListStalePending(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]Payment, error)
}

// Package repository is a typed gorm store for append mostly tables that
// need no hand written queries.
package repository

import (
	"context"

	"github.com/smallbiznis/sitebuilder/pkg/db/option"
	"gorm.io/gorm"
)

// Repository filters by the non zero fields of query, then applies opts.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
}

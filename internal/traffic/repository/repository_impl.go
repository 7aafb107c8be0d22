package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/sitebuilder/internal/traffic/domain"
	"github.com/smallbiznis/sitebuilder/pkg/db/option"
	"github.com/smallbiznis/sitebuilder/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.TrafficLog) error {
	return repository.ProvideStore[domain.TrafficLog](db).Create(ctx, entry)
}

func (r *repo) CountSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error) {
	return repository.ProvideStore[domain.TrafficLog](db).Count(ctx, nil, option.WithWhere("created_at >= ?", since))
}

func (r *repo) CountDistinctIPSince(ctx context.Context, db *gorm.DB, since time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(DISTINCT ip_address) FROM traffic_logs WHERE created_at >= ? AND ip_address <> ''`,
		since,
	).Scan(&total).Error
	return total, err
}

func (r *repo) TopPathsSince(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]domain.Count, error) {
	var rows []domain.Count
	err := db.WithContext(ctx).Raw(
		`SELECT path AS key, COUNT(*) AS total
		 FROM traffic_logs
		 WHERE created_at >= ?
		 GROUP BY path
		 ORDER BY total DESC, path ASC
		 LIMIT ?`,
		since,
		limit,
	).Scan(&rows).Error
	return rows, err
}

func (r *repo) TopReferrersSince(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]domain.Count, error) {
	var rows []domain.Count
	err := db.WithContext(ctx).Raw(
		`SELECT referrer AS key, COUNT(*) AS total
		 FROM traffic_logs
		 WHERE created_at >= ? AND referrer <> ''
		 GROUP BY referrer
		 ORDER BY total DESC, referrer ASC
		 LIMIT ?`,
		since,
		limit,
	).Scan(&rows).Error
	return rows, err
}

func (r *repo) DailySince(ctx context.Context, db *gorm.DB, since time.Time) ([]domain.Count, error) {
	var rows []domain.Count
	err := db.WithContext(ctx).Raw(
		`SELECT CAST(DATE(created_at) AS TEXT) AS key, COUNT(*) AS total
		 FROM traffic_logs
		 WHERE created_at >= ?
		 GROUP BY DATE(created_at)
		 ORDER BY key ASC`,
		since,
	).Scan(&rows).Error
	return rows, err
}

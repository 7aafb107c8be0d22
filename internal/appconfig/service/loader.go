package service

import (
	"context"

	"github.com/smallbiznis/sitebuilder/internal/appconfig/domain"
	"gorm.io/gorm"
)

type loader struct {
	db   *gorm.DB
	repo domain.Repository
}

// NewLoader reads the singleton rows on every call so each operation sees a consistent snapshot.
func NewLoader(db *gorm.DB, repo domain.Repository) domain.Loader {
	return &loader{db: db, repo: repo}
}

func (l *loader) AppSnapshot(ctx context.Context) (domain.AppConfig, error) {
	cfg, err := l.repo.FindAppConfig(ctx, l.db)
	if err != nil {
		return domain.AppConfig{}, err
	}
	if cfg == nil {
		return domain.DefaultAppConfig(), nil
	}
	return *cfg, nil
}

func (l *loader) EmailSnapshot(ctx context.Context) (domain.EmailConfig, error) {
	cfg, err := l.repo.FindEmailConfig(ctx, l.db)
	if err != nil {
		return domain.EmailConfig{}, err
	}
	if cfg == nil {
		return domain.EmailConfig{}, nil
	}
	return *cfg, nil
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebuilder/internal/clock"
	"github.com/smallbiznis/sitebuilder/internal/traffic/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultSummaryDays = 30
	maxSummaryDays     = 365
	topLimit           = 10
	maxFieldLength     = 512
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("traffic.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) {
	path := truncate(strings.TrimSpace(req.Path))
	if path == "" {
		return
	}
	entry := &domain.TrafficLog{
		ID:        s.genID.Generate(),
		Path:      path,
		Referrer:  truncate(strings.TrimSpace(req.Referrer)),
		UserAgent: truncate(strings.TrimSpace(req.UserAgent)),
		IPAddress: strings.TrimSpace(req.IPAddress),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Warn("record traffic failed", zap.String("path", path), zap.Error(err))
	}
}

func (s *Service) Summary(ctx context.Context, req domain.SummaryRequest) (*domain.Summary, error) {
	days := req.Days
	if days == 0 {
		days = defaultSummaryDays
	}
	if days < 0 || days > maxSummaryDays {
		return nil, domain.ErrInvalidRange
	}

	now := s.clock.Now()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(days - 1))

	total, err := s.repo.CountSince(ctx, s.db, since)
	if err != nil {
		return nil, err
	}
	unique, err := s.repo.CountDistinctIPSince(ctx, s.db, since)
	if err != nil {
		return nil, err
	}
	paths, err := s.repo.TopPathsSince(ctx, s.db, since, topLimit)
	if err != nil {
		return nil, err
	}
	referrers, err := s.repo.TopReferrersSince(ctx, s.db, since, topLimit)
	if err != nil {
		return nil, err
	}
	daily, err := s.repo.DailySince(ctx, s.db, since)
	if err != nil {
		return nil, err
	}

	return &domain.Summary{
		Days:           days,
		TotalHits:      total,
		UniqueVisitors: unique,
		TopPaths:       nonNil(paths),
		TopReferrers:   nonNil(referrers),
		Daily:          nonNil(daily),
	}, nil
}

func truncate(value string) string {
	if len(value) > maxFieldLength {
		return value[:maxFieldLength]
	}
	return value
}

func nonNil(rows []domain.Count) []domain.Count {
	if rows == nil {
		return []domain.Count{}
	}
	return rows
}

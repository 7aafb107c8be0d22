package cloudmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/sitebuilder/internal/config"
	orderdomain "github.com/smallbiznis/sitebuilder/internal/order/domain"
	tenantdomain "github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const pushInterval = 30 * time.Minute

var Module = fx.Module("cloud.metrics",
	fx.Provide(NewPusher),
	fx.Provide(func(
		cfg config.Config,
		pusher Pusher,
		db *gorm.DB,
		tenantRepo tenantdomain.Repository,
		orderRepo orderdomain.Repository,
		logger *zap.Logger,
	) *CloudMetrics {
		if !cfg.Cloud.Metrics.Enabled || pusher == nil {
			return nil
		}
		return New(prometheus.NewRegistry(), pusher, db, tenantRepo, orderRepo, cfg.Cloud.InstanceID, cfg.AppVersion, logger)
	}),
	fx.Invoke(func(lc fx.Lifecycle, c *CloudMetrics, logger *zap.Logger) {
		if c == nil {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				logger.Info("starting cloud metrics background worker")
				go run(ctx, c, logger)
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}),
)

func run(ctx context.Context, c *CloudMetrics, logger *zap.Logger) {
	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	if err := c.Push(ctx); err != nil {
		logger.Error("initial cloud metrics push failed", zap.Error(err))
	}
	for {
		select {
		case <-ticker.C:
			if err := c.Push(ctx); err != nil {
				logger.Error("periodic cloud metrics push failed", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("stopping cloud metrics background worker")
			return
		}
	}
}

package migration

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	appconfigdomain "github.com/smallbiznis/sitebuilder/internal/appconfig/domain"
	authdomain "github.com/smallbiznis/sitebuilder/internal/auth/domain"
	catalogdomain "github.com/smallbiznis/sitebuilder/internal/catalog/domain"
	"github.com/smallbiznis/sitebuilder/internal/config"
	gatewaydomain "github.com/smallbiznis/sitebuilder/internal/gateway/domain"
	orderdomain "github.com/smallbiznis/sitebuilder/internal/order/domain"
	paymentdomain "github.com/smallbiznis/sitebuilder/internal/payment/domain"
	"github.com/smallbiznis/sitebuilder/internal/seed"
	tenantdomain "github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	trafficdomain "github.com/smallbiznis/sitebuilder/internal/traffic/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, log *zap.Logger) error {
		if err := Apply(conn, cfg.DBType, log); err != nil {
			return err
		}
		return seed.New(conn, node, log, cfg.Bootstrap).Run(context.Background())
	}),
)

// Models lists every persisted type, in dependency order.
func Models() []any {
	return []any{
		&authdomain.User{},
		&catalogdomain.Package{},
		&catalogdomain.DomainPrice{},
		&orderdomain.Order{},
		&paymentdomain.Payment{},
		&tenantdomain.Tenant{},
		&appconfigdomain.AppConfig{},
		&appconfigdomain.EmailConfig{},
		&gatewaydomain.Config{},
		&trafficdomain.TrafficLog{},
	}
}

// Apply runs the SQL migrations on postgres and falls back to gorm auto-migration for
// the development dialects.
func Apply(conn *gorm.DB, dbType string, log *zap.Logger) error {
	dialect := strings.ToLower(strings.TrimSpace(dbType))
	switch dialect {
	case "postgres", "":
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		version, err := RunMigrations(sqlDB)
		if err != nil {
			return err
		}
		log.Info("database schema up to date", zap.Uint("version", version))
		return nil
	default:
		log.Info("auto-migrating schema", zap.String("dialect", dialect))
		return conn.AutoMigrate(Models()...)
	}
}

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebuilder/internal/appconfig"
	"github.com/smallbiznis/sitebuilder/internal/clock"
	"github.com/smallbiznis/sitebuilder/internal/config"
	"github.com/smallbiznis/sitebuilder/internal/gateway"
	"github.com/smallbiznis/sitebuilder/internal/observability"
	"github.com/smallbiznis/sitebuilder/internal/order"
	"github.com/smallbiznis/sitebuilder/internal/payment"
	"github.com/smallbiznis/sitebuilder/internal/providers"
	"github.com/smallbiznis/sitebuilder/internal/ratelimit"
	"github.com/smallbiznis/sitebuilder/internal/scheduler"
	"github.com/smallbiznis/sitebuilder/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by scheduler
		scheduler.Module,
		payment.Module,
		order.Module,
		gateway.Module,
		appconfig.Module,
		providers.Module,

		// Redis backs the per-job lock so several workers can run side by side.
		ratelimit.Module,

		// No server module!
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}

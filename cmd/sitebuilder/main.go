package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebuilder/internal/clock"
	"github.com/smallbiznis/sitebuilder/internal/config"
	"github.com/smallbiznis/sitebuilder/internal/migration"
	"github.com/smallbiznis/sitebuilder/internal/observability"
	"github.com/smallbiznis/sitebuilder/internal/scheduler"
	"github.com/smallbiznis/sitebuilder/internal/server"
	"github.com/smallbiznis/sitebuilder/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Storefront + admin API, with every domain module it serves
		server.Module,

		// Payment expiry sweeps run in-process for single-node deployments.
		// Set SCHEDULER_ENABLED=false when apps/scheduler runs separately.
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

package gateway

import (
	"github.com/smallbiznis/sitebuilder/internal/gateway/adapters"
	"github.com/smallbiznis/sitebuilder/internal/gateway/adapters/manual"
	"github.com/smallbiznis/sitebuilder/internal/gateway/adapters/midtrans"
	"github.com/smallbiznis/sitebuilder/internal/gateway/adapters/xendit"
	"github.com/smallbiznis/sitebuilder/internal/gateway/repository"
	"github.com/smallbiznis/sitebuilder/internal/gateway/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			midtrans.NewFactory(),
			xendit.NewFactory(),
			manual.NewFactory(),
		)
	}),
	fx.Provide(service.New),
)

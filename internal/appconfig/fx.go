package appconfig

import (
	"github.com/smallbiznis/sitebuilder/internal/appconfig/repository"
	"github.com/smallbiznis/sitebuilder/internal/appconfig/service"
	"github.com/smallbiznis/sitebuilder/internal/providers/email"
	"go.uber.org/fx"
)

var Module = fx.Module("appconfig.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewLoader),
	fx.Provide(service.New),
	fx.Provide(func(p email.Provider) service.TestMailer { return p }),
)

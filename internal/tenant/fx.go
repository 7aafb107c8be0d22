package tenant

import (
	"github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	"github.com/smallbiznis/sitebuilder/internal/tenant/repository"
	"github.com/smallbiznis/sitebuilder/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc domain.Service) domain.Provisioner { return svc }),
)

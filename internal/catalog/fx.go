package catalog

import (
	"github.com/smallbiznis/sitebuilder/internal/catalog/repository"
	"github.com/smallbiznis/sitebuilder/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

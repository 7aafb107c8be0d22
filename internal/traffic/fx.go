package traffic

import (
	"github.com/smallbiznis/sitebuilder/internal/traffic/repository"
	"github.com/smallbiznis/sitebuilder/internal/traffic/service"
	"go.uber.org/fx"
)

var Module = fx.Module("traffic.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

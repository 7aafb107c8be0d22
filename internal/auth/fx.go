package auth

import (
	"github.com/smallbiznis/sitebuilder/internal/auth/repository"
	"github.com/smallbiznis/sitebuilder/internal/auth/service"
	"github.com/smallbiznis/sitebuilder/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(token.NewJWTService),
	fx.Provide(service.New),
)

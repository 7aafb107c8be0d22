package storage

import (
	"context"
	"fmt"

	"github.com/smallbiznis/sitebuilder/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.storage",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lc  fx.Lifecycle
	Cfg config.Config
	Log *zap.Logger
}

// Result exposes the local driver separately so the HTTP server can serve its files.
type Result struct {
	fx.Out

	Storage Storage
	Local   *Local
}

func New(p Params) (Result, error) {
	log := p.Log.Named("storage")
	switch p.Cfg.Storage.Driver {
	case "", config.StorageDriverLocal:
		local, err := NewLocal(p.Cfg.Storage.LocalRoot, p.Cfg.Storage.PublicPrefix, log)
		if err != nil {
			return Result{}, err
		}
		return Result{Storage: local, Local: local}, nil
	case config.StorageDriverS3:
		s3, err := NewS3(context.Background(), p.Cfg.Storage, log)
		if err != nil {
			return Result{}, err
		}
		p.Lc.Append(fx.Hook{OnStart: s3.EnsureBucket})
		return Result{Storage: s3}, nil
	default:
		return Result{}, fmt.Errorf("unknown storage driver %q", p.Cfg.Storage.Driver)
	}
}

package geo

import (
	"github.com/renatoambrosi/backmercadopro/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("geo",
	fx.Provide(func(cfg config.Config, log *zap.Logger) Resolver {
		return New(cfg.GeoTimeout, log)
	}),
)

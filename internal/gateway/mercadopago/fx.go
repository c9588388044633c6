package mercadopago

import (
	"github.com/renatoambrosi/backmercadopro/internal/config"
	"github.com/renatoambrosi/backmercadopro/internal/gateway"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("gateway.mercadopago",
	fx.Provide(func(cfg config.Config, log *zap.Logger) gateway.Client {
		return New(cfg.GatewayAPIURL, cfg.AccessToken, log, WithSandbox(cfg.Sandbox))
	}),
)

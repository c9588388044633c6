package checkout

import (
	"github.com/renatoambrosi/backmercadopro/internal/checkout/service"
	"github.com/renatoambrosi/backmercadopro/internal/payment/poller"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout.service",
	fx.Provide(func(p *poller.Poller) service.PollStarter { return p }),
	fx.Provide(service.NewService),
)

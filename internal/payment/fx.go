package payment

import (
	"github.com/renatoambrosi/backmercadopro/internal/config"
	mpadapter "github.com/renatoambrosi/backmercadopro/internal/payment/adapters/mercadopago"
	"github.com/renatoambrosi/backmercadopro/internal/payment/domain"
	"github.com/renatoambrosi/backmercadopro/internal/payment/poller"
	"github.com/renatoambrosi/backmercadopro/internal/payment/repository"
	"github.com/renatoambrosi/backmercadopro/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config, log *zap.Logger) domain.WebhookAdapter {
		return mpadapter.NewAdapter(cfg.WebhookSecret, log)
	}),
	fx.Provide(service.NewService),
	poller.Module,
)

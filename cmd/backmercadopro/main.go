package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/renatoambrosi/backmercadopro/internal/checkout"
	"github.com/renatoambrosi/backmercadopro/internal/clock"
	"github.com/renatoambrosi/backmercadopro/internal/config"
	"github.com/renatoambrosi/backmercadopro/internal/gateway/mercadopago"
	"github.com/renatoambrosi/backmercadopro/internal/geo"
	"github.com/renatoambrosi/backmercadopro/internal/migration"
	"github.com/renatoambrosi/backmercadopro/internal/notify/providers"
	"github.com/renatoambrosi/backmercadopro/internal/observability/logger"
	"github.com/renatoambrosi/backmercadopro/internal/observability/metrics"
	"github.com/renatoambrosi/backmercadopro/internal/observability/tracing"
	"github.com/renatoambrosi/backmercadopro/internal/payment"
	"github.com/renatoambrosi/backmercadopro/internal/server"
	"github.com/renatoambrosi/backmercadopro/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		tracing.Module,
		metrics.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		clock.Module,
		db.Module,
		fx.Invoke(func(conn *gorm.DB) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return migration.RunMigrations(sqlDB)
		}),
		geo.Module,
		mercadopago.Module,
		providers.Module,
		payment.Module,
		checkout.Module,
		server.Module,
	)
	app.Run()
}

package main

import (
	"context"
	"log"

	"dn_farming/internal/modules/arbitrum"
	"dn_farming/internal/modules/config"
	"dn_farming/internal/modules/extended_client"
	"dn_farming/internal/modules/health"
	"dn_farming/internal/modules/lighter_client"
	"dn_farming/internal/modules/postgres"
	"dn_farming/internal/runner"
	"dn_farming/pkg/logger"
	"dn_farming/pkg/tracing"

	"go.uber.org/fx"
)

const serviceName = "dn_farming"

func main() {
	logger.SetServiceName(serviceName)
	logger.Init("logs/dn_farming.log")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		arbitrum.Module(),
		extended_client.Module(),
		lighter_client.Module(),
		health.Module(),
		runner.Module(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			if cfg.Jaeger.Host == "" {
				return nil
			}
			tracing.SetServiceName(serviceName)
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				return err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeTracer()
					return nil
				},
			})
			return nil
		}),
	)

	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}

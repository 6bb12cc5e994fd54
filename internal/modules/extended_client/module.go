package extended_client

import (
	"dn_farming/internal/modules/extended_client/service"
	"dn_farming/internal/venue"

	"go.uber.org/fx"
)

var (
	_ venue.Client    = (*service.Client)(nil)
	_ venue.PriceFeed = (*service.Client)(nil)
)

// Module поднимает REST/WS клиент Extended.
func Module() fx.Option {
	return fx.Module("extended_client",
		fx.Provide(
			service.NewClient,
		),
	)
}

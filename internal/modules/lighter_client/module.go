package lighter_client

import (
	"dn_farming/internal/modules/lighter_client/service"
	"dn_farming/internal/venue"

	"go.uber.org/fx"
)

var (
	_ venue.Client    = (*service.Client)(nil)
	_ venue.PriceFeed = (*service.Client)(nil)
)

// Module поднимает REST/WS клиент Lighter (zk-перпы, L2).
func Module() fx.Option {
	return fx.Module("lighter_client",
		fx.Provide(
			service.NewClient,
		),
	)
}

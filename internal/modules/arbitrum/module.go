package arbitrum

import (
	"dn_farming/internal/modules/arbitrum/service"

	"go.uber.org/fx"
)

// Module поднимает клиент Arbitrum (расчётный слой для ребаланса).
func Module() fx.Option {
	return fx.Module("arbitrum",
		fx.Provide(
			service.NewClient,
		),
	)
}

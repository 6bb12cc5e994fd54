package runner

import (
	"context"

	"dn_farming/internal/closepolicy"
	"dn_farming/internal/executor"
	"dn_farming/internal/journal"
	"dn_farming/internal/modules/config"
	arbservice "dn_farming/internal/modules/arbitrum/service"
	extservice "dn_farming/internal/modules/extended_client/service"
	healthsvc "dn_farming/internal/modules/health/service"
	litservice "dn_farming/internal/modules/lighter_client/service"
	"dn_farming/internal/notify"
	"dn_farming/internal/pnl"
	"dn_farming/internal/rebalance"
	"dn_farming/pkg/db"
	"dn_farming/pkg/logger"

	"go.uber.org/fx"
)

func NewNotifier(cfg *config.Config, extended *extservice.Client, lighter *litservice.Client) notify.Notifier {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		return notify.NewStdout()
	}
	t, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, extended, lighter)
	if err != nil {
		logger.Error("telegram init: %v, нотификации в stdout", err)
		return notify.NewStdout()
	}
	return t
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			func(extended *extservice.Client, lighter *litservice.Client, cfg *config.Config) *executor.Executor {
				return executor.New(extended, lighter, cfg.SizeTolerancePct)
			},
			func(extended *extservice.Client, lighter *litservice.Client) *pnl.Aggregator {
				return pnl.New(extended, lighter)
			},
			func(cfg *config.Config) closepolicy.Policy {
				return closepolicy.New(cfg.MinimalPnl, cfg.PnlCheckDelay)
			},
			func(chain *arbservice.Client, cfg *config.Config) *rebalance.Saga {
				return rebalance.New(chain, cfg.RebalanceThreshold, cfg.Margin)
			},
			func(m *db.PgTxManager) *journal.Journal {
				return journal.New(m)
			},
			NewNotifier,
			NewRunner,
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			shutdowner fx.Shutdowner,
			r *Runner,
			cfg *config.Config,
			extended *extservice.Client,
			lighter *litservice.Client,
			j *journal.Journal,
			notifier notify.Notifier,
			state *healthsvc.State,
		) {
			runCtx, cancel := context.WithCancel(context.Background())

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer func() { _ = shutdowner.Shutdown() }()

						if err := j.EnsureSchema(runCtx); err != nil {
							logger.Error("%v", err)
							return
						}

						if tg, ok := notifier.(*notify.Telegram); ok {
							_ = tg.Start(runCtx)
						}

						// стримы до торговли: без котировок решения не принимаем
						if err := extended.StartStreams(runCtx, cfg.Symbol); err != nil {
							logger.Error("extended streams: %v", err)
							return
						}
						state.SetExtendedWS(true)
						if err := lighter.StartStreams(runCtx, cfg.Symbol); err != nil {
							logger.Error("lighter streams: %v", err)
							return
						}
						state.SetLighterWS(true)
						state.SetReady(true)

						if err := r.Run(runCtx); err != nil {
							logger.Error("runner: %v", err)
						}
					}()
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}

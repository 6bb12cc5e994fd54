package runner

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"dn_farming/internal/closepolicy"
	"dn_farming/internal/executor"
	"dn_farming/internal/journal"
	"dn_farming/internal/metrics"
	"dn_farming/internal/models"
	"dn_farming/internal/modules/config"
	extservice "dn_farming/internal/modules/extended_client/service"
	healthsvc "dn_farming/internal/modules/health/service"
	litservice "dn_farming/internal/modules/lighter_client/service"
	"dn_farming/internal/notify"
	"dn_farming/internal/pnl"
	"dn_farming/internal/rebalance"
	"dn_farming/pkg/logger"
)

const (
	// свежесть рыночных данных для решений о закрытии
	pnlMaxAge = 10 * time.Second
	// ожидание подтверждения пары после открытия
	verifyTimeout = 30 * time.Second
	// попытки открытия пары в рамках одного цикла
	openAttempts      = 3
	openAttemptsDelay = 2 * time.Second
)

// Runner гоняет циклы open -> hold -> close и между ними выравнивает
// балансы бирж.
type Runner struct {
	cfg *config.Config

	extended *extservice.Client
	lighter  *litservice.Client

	exec     *executor.Executor
	agg      *pnl.Aggregator
	policy   closepolicy.Policy
	saga     *rebalance.Saga
	journal  *journal.Journal
	notifier notify.Notifier
	health   *healthsvc.State
}

func NewRunner(
	cfg *config.Config,
	extended *extservice.Client,
	lighter *litservice.Client,
	exec *executor.Executor,
	agg *pnl.Aggregator,
	policy closepolicy.Policy,
	saga *rebalance.Saga,
	j *journal.Journal,
	notifier notify.Notifier,
	health *healthsvc.State,
) *Runner {
	return &Runner{
		cfg:      cfg,
		extended: extended,
		lighter:  lighter,
		exec:     exec,
		agg:      agg,
		policy:   policy,
		saga:     saga,
		journal:  j,
		notifier: notifier,
		health:   health,
	}
}

// Run — главный цикл. Ошибка одного цикла не валит весь прогон, кроме
// нехватки средств: дальше торговать всё равно нечем.
func (r *Runner) Run(ctx context.Context) error {
	logger.Info("▶️ старт: %d циклов по %s, режим %s, плечо x%d, маржа $%.2f",
		r.cfg.NumCycles, r.cfg.Symbol, r.cfg.OrderMode, r.cfg.Leverage, r.cfg.Margin)

	if err := r.exec.SetupLeverage(ctx, r.cfg.Symbol, r.cfg.Leverage); err != nil {
		return err
	}

	for n := 1; n <= r.cfg.NumCycles; n++ {
		if ctx.Err() != nil {
			break
		}

		if err := r.runCycle(ctx, n); err != nil {
			logger.Error("цикл %d: %v", n, err)
			r.notifier.Sendf("❗️ цикл %d провален: %v", n, err)
			if ctx.Err() != nil {
				break
			}
		}

		if n < r.cfg.NumCycles {
			if err := r.betweenCycles(ctx, n); err != nil {
				var ife *models.InsufficientFundsError
				if errors.As(err, &ife) {
					r.notifier.Sendf("🛑 останавливаемся: %v", ife)
					return err
				}
			}
		}
	}

	r.consolidate(ctx)
	r.health.SetCycle(r.cfg.NumCycles, "idle")
	logger.Info("🏁 прогон завершён")
	return nil
}

// holdDuration — случайное удержание в [min, max], чтобы циклы не были
// различимы по таймингу.
func (r *Runner) holdDuration() time.Duration {
	min, max := r.cfg.MinDuration, r.cfg.MaxDuration
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// snapshotPnl — комбинированный PnL по зафиксированным ногам. Живые
// стримы обеих бирж — считаем по ним; стримы легли — прямой REST-опрос
// позиций, их unrealized PnL авторитетен и тоже считается свежим.
func (r *Runner) snapshotPnl(ctx context.Context, extPos, litPos *models.Position) func() (float64, bool) {
	return func() (float64, bool) {
		if r.agg.IsFresh(r.cfg.Symbol, pnlMaxAge) {
			c := r.agg.Combined(extPos, litPos)
			metrics.CombinedPnl.Set(c.Total)
			return c.Total, true
		}

		c, err := pnl.Reported(ctx, r.cfg.Symbol, r.extended, r.lighter)
		if err != nil {
			logger.Error("PnL: стримы несвежие и прямой опрос не удался: %v", err)
			return r.agg.Combined(extPos, litPos).Total, false
		}
		metrics.CombinedPnl.Set(c.Total)
		return c.Total, true
	}
}

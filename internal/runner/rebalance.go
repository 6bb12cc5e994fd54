package runner

import (
	"context"
	"errors"
	"time"

	"dn_farming/internal/metrics"
	"dn_farming/internal/models"
	"dn_farming/internal/rebalance"
	"dn_farming/pkg/logger"
)

// betweenCycles — проверка балансов и ребаланс между циклами. Провал
// саги не валит прогон, кроме нехватки средств.
func (r *Runner) betweenCycles(ctx context.Context, n int) error {
	r.health.SetCycle(n, "rebalancing")

	r.publishBalances(ctx)

	tr, err := r.saga.RebalanceIfNeeded(ctx, r.extended, r.lighter)
	if jerr := r.journal.Transfer(ctx, tr); jerr != nil {
		logger.Error("журнал: %v", jerr)
	}
	switch {
	case errors.Is(err, rebalance.ErrInProgress):
		// не должно случаться при последовательных циклах
		logger.Error("ребаланс уже идёт, пропускаем")
	case err != nil:
		metrics.Rebalances.WithLabelValues("failed").Inc()
		logger.Error("ребаланс после цикла %d: %v", n, err)
		r.notifier.Sendf("⚠️ ребаланс провален: %v", err)

		var ife *models.InsufficientFundsError
		if errors.As(err, &ife) {
			return err
		}
	case tr != nil:
		outcome := "done"
		if tr.InFlight {
			outcome = "in_flight"
		}
		metrics.Rebalances.WithLabelValues(outcome).Inc()
		r.notifier.Sendf("🔄 ребаланс: $%.2f %s -> %s", tr.Amount, tr.FromVenue, tr.ToVenue)
	}

	if r.cfg.DelayBetweenCycles > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(r.cfg.DelayBetweenCycles):
		}
	}
	return nil
}

// consolidate — финальный сбор средств на основную биржу.
func (r *Runner) consolidate(ctx context.Context) {
	if !r.cfg.WithdrawToMainVenue {
		return
	}

	var from, to rebalance.Venue = r.lighter, r.extended
	if r.cfg.MainVenue == r.lighter.Name() {
		from, to = r.extended, r.lighter
	}

	logger.Info("💰 консолидация средств на %s", to.Name())
	tr, err := r.saga.Consolidate(ctx, from, to)
	if jerr := r.journal.Transfer(ctx, tr); jerr != nil {
		logger.Error("журнал: %v", jerr)
	}
	if err != nil {
		metrics.Rebalances.WithLabelValues("failed").Inc()
		logger.Error("консолидация: %v", err)
		r.notifier.Sendf("⚠️ консолидация на %s провалена: %v", to.Name(), err)
		return
	}
	if tr != nil {
		metrics.Rebalances.WithLabelValues("done").Inc()
		r.notifier.Sendf("💰 $%.2f собраны на %s", tr.Amount, to.Name())
	}
}

func (r *Runner) publishBalances(ctx context.Context) {
	if bal, err := r.extended.GetBalance(ctx); err == nil {
		metrics.VenueBalance.WithLabelValues(r.extended.Name()).Set(bal.Total)
	}
	if bal, err := r.lighter.GetBalance(ctx); err == nil {
		metrics.VenueBalance.WithLabelValues(r.lighter.Name()).Set(bal.Total)
	}
}

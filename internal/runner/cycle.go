package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dn_farming/internal/compare"
	"dn_farming/internal/metrics"
	"dn_farming/internal/models"
	"dn_farming/pkg/logger"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
)

// runCycle — один полный цикл: открыть пару, подтвердить, держать,
// закрыть. Закрытие гарантировано даже при отмене контекста.
func (r *Runner) runCycle(ctx context.Context, n int) error {
	r.health.SetCycle(n, "opening")
	metrics.CyclesStarted.Inc()
	logger.Info("——— цикл %d/%d ———", n, r.cfg.NumCycles)

	span := opentracing.StartSpan("trade_cycle")
	span.SetTag("cycle", n)
	defer span.Finish()
	ctx = opentracing.ContextWithSpan(ctx, span)

	cycle := &models.TradeCycle{
		ID:       uuid.NewString(),
		Symbol:   r.cfg.Symbol,
		Leverage: r.cfg.Leverage,
		Margin:   r.cfg.Margin,
		OpenedAt: time.Now(),
	}

	legs, err := r.openPair(ctx)
	if err != nil {
		return err
	}
	cycle.Legs = legs
	metrics.LegsOpened.WithLabelValues(legs[0].Venue).Inc()
	metrics.LegsOpened.WithLabelValues(legs[1].Venue).Inc()

	// с этого момента на биржах могут висеть позиции — закрываем в
	// любом исходе, даже по Ctrl+C
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
		defer cancel()
		if cerr := r.exec.Close(closeCtx, r.cfg.Symbol); cerr != nil {
			logger.Error("цикл %d: закрытие: %v", n, cerr)
			r.notifier.Sendf("❗️ цикл %d: позиции могли остаться открытыми: %v", n, cerr)
		}
	}()

	if err := r.exec.Verify(ctx, r.cfg.Symbol, verifyTimeout); err != nil {
		r.notifier.Sendf("❗️ цикл %d: верификация пары провалена: %v", n, err)
		return err
	}

	if err := r.journal.CycleOpened(ctx, cycle); err != nil {
		logger.Error("журнал: %v", err)
	}
	r.notifier.Sendf("📈 цикл %d: %s extended %s / lighter %s, size %.6f",
		n, cycle.Symbol, legs[0].Side, legs[1].Side, legs[0].Size)

	// позиции фиксируем один раз: вход не меняется, цены идут со стримов
	extPos, err := r.extended.GetPosition(ctx, r.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("цикл %d: позиция extended: %w", n, err)
	}
	litPos, err := r.lighter.GetPosition(ctx, r.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("цикл %d: позиция lighter: %w", n, err)
	}
	pnlFn := r.snapshotPnl(ctx, extPos, litPos)

	r.health.SetCycle(n, "holding")
	hold := r.holdDuration()
	cycle.TargetDuration = hold

	reason, err := r.hold(ctx, hold, pnlFn)
	cycle.CloseReason = reason

	// PnL снимаем до закрытия: после него позиций уже нет
	finalPnl, _ := pnlFn()

	r.health.SetCycle(n, "closing")
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
	defer cancel()
	if cerr := r.exec.Close(closeCtx, r.cfg.Symbol); cerr != nil {
		return fmt.Errorf("цикл %d: закрытие: %w", n, cerr)
	}

	cycle.ClosedAt = time.Now()
	metrics.CyclesClosed.WithLabelValues(string(reason)).Inc()
	if jerr := r.journal.CycleClosed(closeCtx, cycle, finalPnl); jerr != nil {
		logger.Error("журнал: %v", jerr)
	}
	r.notifier.Sendf("✅ цикл %d закрыт (%s), PnL $%.4f", n, reason, finalPnl)

	return err
}

// openPair — до openAttempts попыток открыть пару. Решение long/short
// пересчитывается на каждой попытке: спред мог развернуться.
func (r *Runner) openPair(ctx context.Context) ([2]models.Leg, error) {
	var legs [2]models.Leg
	var lastErr error

	for attempt := 1; attempt <= openAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return legs, ctx.Err()
			case <-time.After(openAttemptsDelay):
			}
		}

		r.exec.ResetCycle()

		tickerExt, err := r.extended.GetTicker(ctx, r.cfg.Symbol)
		if err != nil {
			lastErr = err
			continue
		}
		tickerLit, err := r.lighter.GetTicker(ctx, r.cfg.Symbol)
		if err != nil {
			lastErr = err
			continue
		}

		d, err := compare.Decide(tickerExt, tickerLit)
		if err != nil {
			lastErr = err
			continue
		}
		logger.Info("сравнение: extended %.4f / lighter %.4f, спред %.4f%% -> extended %s",
			d.PriceExtended, d.PriceLighter, d.SpreadPercent, d.ExtendedSide)

		decimals, err := r.lighter.SizeDecimals(ctx, r.cfg.Symbol)
		if err != nil {
			lastErr = err
			continue
		}
		size, err := compare.LegSize(r.cfg.Margin, r.cfg.SafetyFactor, r.cfg.Leverage, d.PriceExtended, decimals)
		if err != nil {
			return legs, err
		}

		if r.cfg.OrderMode == "limit" {
			legs, err = r.exec.OpenLimit(ctx, r.cfg.Symbol, d, size)
		} else {
			legs, err = r.exec.OpenMarket(ctx, r.cfg.Symbol, d, size)
		}
		if err == nil {
			return legs, nil
		}
		lastErr = err

		var pfe *models.PartialFillError
		if errors.As(err, &pfe) {
			metrics.Compensations.Inc()
			if !pfe.Compensated {
				// осиротевшая нога — дальше пробовать нельзя
				r.notifier.Sendf("🚨 осиротевшая нога на %s, компенсация не удалась: %v", pfe.FilledVenue, pfe.CompensateErr)
				return legs, err
			}
			logger.Error("попытка %d/%d: односторонний налив компенсирован, пробуем снова", attempt, openAttempts)
			continue
		}
		if ctx.Err() != nil {
			return legs, err
		}
		logger.Error("попытка %d/%d открытия: %v", attempt, openAttempts, err)
	}

	return legs, fmt.Errorf("открытие пары: %d попыток исчерпано: %w", openAttempts, lastErr)
}

// hold держит пару hold, раз в секунду обновляя PnL, затем отдаёт
// решение о закрытии политике.
func (r *Runner) hold(ctx context.Context, hold time.Duration, pnlFn func() (float64, bool)) (models.CloseReason, error) {
	logger.Info("⏳ удержание %s", hold.Round(time.Second))

	deadline := time.NewTimer(hold)
	defer deadline.Stop()
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return models.CloseInterrupted, ctx.Err()
		case <-deadline.C:
			return r.policy.Await(ctx, pnlFn)
		case <-tick.C:
			pnlFn() // обновляет гейдж
		}
	}
}

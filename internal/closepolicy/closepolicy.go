package closepolicy

import (
	"context"
	"time"

	"dn_farming/internal/models"
	"dn_farming/pkg/logger"
)

// Policy решает, когда закрывать пару после окончания удержания.
// PnL выше порога — закрываем сразу. Ниже — даём окно CheckDelay на
// восстановление, опрашивая каждую секунду; по истечении закрываем
// принудительно.
type Policy struct {
	MinimalPnl   float64
	CheckDelay   time.Duration
	PollInterval time.Duration
}

func New(minimalPnl float64, checkDelay time.Duration) Policy {
	return Policy{
		MinimalPnl:   minimalPnl,
		CheckDelay:   checkDelay,
		PollInterval: time.Second,
	}
}

// Await блокирует до решения о закрытии. pnl отдаёт (total, fresh):
// на несвежих данных решение о досрочном закрытии не принимаем, но
// таймаут всё равно закрывает.
func (p Policy) Await(ctx context.Context, pnl func() (float64, bool)) (models.CloseReason, error) {
	total, fresh := pnl()
	if fresh && total >= p.MinimalPnl {
		return models.ClosePositivePnl, nil
	}

	logger.Info("⚠️ PnL $%.4f ниже порога $%.4f, ждём восстановления до %s", total, p.MinimalPnl, p.CheckDelay)

	interval := p.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	deadline := time.NewTimer(p.CheckDelay)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return models.CloseInterrupted, ctx.Err()
		case <-deadline.C:
			total, _ = pnl()
			logger.Info("⏳ окно восстановления истекло, закрываем с PnL $%.4f", total)
			return models.CloseTimeoutPnl, nil
		case <-tick.C:
			total, fresh = pnl()
			if fresh && total >= p.MinimalPnl {
				logger.Info("✅ PnL восстановился до $%.4f, закрываем", total)
				return models.ClosePnlRecovered, nil
			}
		}
	}
}

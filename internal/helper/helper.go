package helper

import (
	"context"
	"math"
	"time"

	"dn_farming/pkg/logger"
)

// retryMaxDelay ограничивает рост паузы между попытками.
const retryMaxDelay = 30 * time.Second

// Retry — до attempts попыток, пауза растёт экспоненциально от base:
// base, 2*base, 4*base... с потолком retryMaxDelay. Ретраим только
// если retryable вернул true (nil-predicate = ретраим всё).
func Retry(ctx context.Context, attempts int, base time.Duration, retryable func(error) bool, fn func() error) error {
	var lastErr error
	delay := base
	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if i < attempts {
			logger.Error("retry %d/%d failed: %v, ждём %s", i, attempts, lastErr, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > retryMaxDelay {
				delay = retryMaxDelay
			}
		}
	}
	return lastErr
}

func RoundDownToDecimals(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Floor(v*p+1e-12) / p
}

func RoundDownToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Floor(px/tick + 1e-12)
	return steps * tick
}

func RoundUpToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Ceil(px/tick - 1e-12)
	return steps * tick
}

// Abs для float64, без мусора из math в вызывающем коде.
func Abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

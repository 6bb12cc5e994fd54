package executor

import (
	"context"
	"fmt"
	"time"

	"dn_farming/internal/compare"
	"dn_farming/internal/helper"
	"dn_farming/internal/models"
	"dn_farming/pkg/logger"
)

const (
	// сколько раз пробуем первично поставить post-only
	maxPlacementAttempts = 5
	// перевешиваем ордер, если рынок ушёл дальше этого
	repegToleranceUSD = 0.10

	fillPollInterval = time.Second
)

// OpenLimit — maker-then-taker: post-only limit на extended по точному
// bid/ask с перевешиванием за рынком, после налива — market на lighter
// размером РЕАЛЬНОГО фила.
func (e *Executor) OpenLimit(ctx context.Context, symbol string, d compare.Decision, size float64) ([2]models.Leg, error) {
	var legs [2]models.Leg

	logger.Info("🔄 limit-открытие %s: extended %s (maker) / lighter %s (taker), size=%.6f",
		symbol, d.ExtendedSide, d.LighterSide, size)

	orderID, price, err := e.placeMaker(ctx, symbol, d.ExtendedSide, size)
	if err != nil {
		return legs, fmt.Errorf("OpenLimit: %w", err)
	}
	legs[0] = models.Leg{Venue: e.extended.Name(), OrderID: orderID, Side: d.ExtendedSide, Size: size, Price: price, Status: models.LegAccepted}

	filled, err := e.awaitMakerFill(ctx, symbol, d.ExtendedSide, &legs[0])
	if err != nil {
		if filled > 0 {
			// недолитую maker-ногу не бросаем
			return legs, e.compensate(ctx, symbol, e.extended.Name(), e.lighter.Name(), filled)
		}
		return legs, fmt.Errorf("OpenLimit: %w", err)
	}
	legs[0].Status = models.LegFilled
	legs[0].Size = filled
	logger.Info("✅ maker-нога налилась: %.6f @ %.4f", filled, legs[0].Price)

	// taker строго по фактическому филу, иначе дельта уедет
	res, err := e.placeOrder(ctx, e.lighter, models.OrderRequest{
		Symbol: symbol,
		Side:   d.LighterSide.OrderSide(),
		Size:   filled,
		Type:   models.OrderMarket,
	})
	if err == nil && res.Ok() {
		legs[1] = models.Leg{Venue: e.lighter.Name(), OrderID: res.OrderID, Side: d.LighterSide, Size: filled, Status: models.LegAccepted}
		return legs, nil
	}

	legs[1] = models.Leg{Venue: e.lighter.Name(), Side: d.LighterSide, Size: filled, Status: models.LegRejected}
	if err != nil {
		logger.Error("OpenLimit: lighter market failed: %v", err)
	} else {
		logger.Error("OpenLimit: lighter market rejected: %s", res.Reason)
	}
	return legs, e.compensate(ctx, symbol, e.extended.Name(), e.lighter.Name(), filled)
}

// placeMaker ставит post-only по текущему bid (buy) / ask (sell),
// до maxPlacementAttempts попыток.
func (e *Executor) placeMaker(ctx context.Context, symbol string, side models.Side, size float64) (string, float64, error) {
	var lastReason string

	for attempt := 1; attempt <= maxPlacementAttempts; attempt++ {
		ticker, err := e.extended.GetTicker(ctx, symbol)
		if err != nil {
			return "", 0, fmt.Errorf("placeMaker ticker: %w", err)
		}

		price := ticker.Bid
		if side == models.SideShort {
			price = ticker.Ask
		}

		res, err := e.placeOrder(ctx, e.extended, models.OrderRequest{
			Symbol:   symbol,
			Side:     side.OrderSide(),
			Size:     size,
			Type:     models.OrderLimit,
			Price:    price,
			PostOnly: true,
		})
		if err != nil {
			return "", 0, fmt.Errorf("placeMaker: %w", err)
		}
		if res.Ok() {
			logger.Info("maker поставлен (попытка %d): %s %s %.6f @ %.4f", attempt, side, symbol, size, price)
			return res.OrderID, price, nil
		}

		// post-only реджект: цена пересекла бы спред, перечитываем и пробуем снова
		lastReason = res.Reason
		logger.Error("maker отклонён (попытка %d/%d): %s", attempt, maxPlacementAttempts, res.Reason)

		select {
		case <-ctx.Done():
			return "", 0, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	return "", 0, fmt.Errorf("placeMaker: %d post-only attempts rejected, last: %s", maxPlacementAttempts, lastReason)
}

// awaitMakerFill ждёт налива без дедлайна, перевешивая ордер когда
// рынок уходит дальше repegToleranceUSD. Частичные филы снятых ордеров
// аккумулируются, перевешиваем только остаток.
func (e *Executor) awaitMakerFill(ctx context.Context, symbol string, side models.Side, leg *models.Leg) (float64, error) {
	var acc float64 // налив по уже закрытым/снятым ордерам
	remaining := leg.Size

	for {
		select {
		case <-ctx.Done():
			// снимаем ордер чтобы не оставить висящую заявку
			_ = e.extended.CancelOrder(context.WithoutCancel(ctx), symbol, leg.OrderID)
			leg.Status = models.LegTimeout
			return 0, ctx.Err()
		case <-time.After(fillPollInterval):
		}

		filled, done, err := e.extended.GetOrderFill(ctx, symbol, leg.OrderID)
		if err != nil {
			logger.Error("awaitMakerFill: %v", err)
			continue
		}
		if done {
			acc += filled
			if acc >= leg.Size*0.999 {
				return acc, nil
			}
			// ордер умер недолитым (истёк/снят биржей) — перевешиваем остаток
			remaining = leg.Size - acc
			logger.Error("maker-ордер закрылся с %.6f из %.6f, перевешиваем остаток %.6f", acc, leg.Size, remaining)
			orderID, price, err := e.placeMaker(ctx, symbol, side, remaining)
			if err != nil {
				return acc, err
			}
			leg.OrderID, leg.Price = orderID, price
			continue
		}

		ticker, err := e.extended.GetTicker(ctx, symbol)
		if err != nil {
			continue
		}
		market := ticker.Bid
		if side == models.SideShort {
			market = ticker.Ask
		}

		if helper.Abs(market-leg.Price) > repegToleranceUSD {
			logger.Info("🔄 рынок ушёл (%.4f -> %.4f), перевешиваем maker", leg.Price, market)
			if err := e.extended.CancelOrder(ctx, symbol, leg.OrderID); err != nil {
				logger.Error("awaitMakerFill cancel: %v", err)
				continue
			}
			cancelled, _, err := e.extended.GetOrderFill(ctx, symbol, leg.OrderID)
			if err == nil {
				acc += cancelled
			}
			if acc >= leg.Size*0.999 {
				return acc, nil
			}
			remaining = leg.Size - acc
			orderID, price, err := e.placeMaker(ctx, symbol, side, remaining)
			if err != nil {
				return acc, err
			}
			leg.OrderID, leg.Price = orderID, price
		}
	}
}

package executor

import (
	"context"
	"fmt"
	"sync"

	"dn_farming/internal/compare"
	"dn_farming/internal/models"
	"dn_farming/pkg/logger"
)

// OpenMarket — одновременные market-ордера на обеих биржах.
// Если налилась только одна нога, закрываем её и возвращаем
// PartialFillError.
func (e *Executor) OpenMarket(ctx context.Context, symbol string, d compare.Decision, size float64) ([2]models.Leg, error) {
	var legs [2]models.Leg

	logger.Info("🔄 market-открытие %s: extended %s / lighter %s, size=%.6f", symbol, d.ExtendedSide, d.LighterSide, size)

	type placed struct {
		venue  string
		side   models.Side
		result models.OrderResult
		err    error
	}
	results := make([]placed, 2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res, err := e.placeOrder(ctx, e.extended, models.OrderRequest{
			Symbol: symbol,
			Side:   d.ExtendedSide.OrderSide(),
			Size:   size,
			Type:   models.OrderMarket,
		})
		results[0] = placed{venue: e.extended.Name(), side: d.ExtendedSide, result: res, err: err}
	}()
	go func() {
		defer wg.Done()
		res, err := e.placeOrder(ctx, e.lighter, models.OrderRequest{
			Symbol: symbol,
			Side:   d.LighterSide.OrderSide(),
			Size:   size,
			Type:   models.OrderMarket,
		})
		results[1] = placed{venue: e.lighter.Name(), side: d.LighterSide, result: res, err: err}
	}()
	wg.Wait()

	for i, r := range results {
		status := models.LegRejected
		switch {
		case r.err == nil && r.result.Ok():
			status = models.LegAccepted
		case r.err == nil && r.result.Status == models.OrderTimeout:
			status = models.LegTimeout
		}
		legs[i] = models.Leg{
			Venue:   r.venue,
			OrderID: r.result.OrderID,
			Side:    r.side,
			Size:    size,
			Status:  status,
		}
	}

	okExt := legs[0].Status == models.LegAccepted
	okLit := legs[1].Status == models.LegAccepted

	switch {
	case okExt && okLit:
		return legs, nil
	case !okExt && !okLit:
		return legs, fmt.Errorf("OpenMarket: обе ноги отклонены: extended=%v lighter=%v",
			firstProblem(results[0].err, results[0].result), firstProblem(results[1].err, results[1].result))
	default:
		filled, failed := results[0], results[1]
		if okLit {
			filled, failed = results[1], results[0]
		}
		return legs, e.compensate(ctx, symbol, filled.venue, failed.venue, size)
	}
}

func firstProblem(err error, res models.OrderResult) any {
	if err != nil {
		return err
	}
	return res.Reason
}

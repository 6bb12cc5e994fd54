package executor

import (
	"context"

	"dn_farming/internal/models"
	"dn_farming/pkg/logger"
)

// compensate закрывает осиротевшую ногу reduce-only market-ордером.
// Guard гарантирует не больше одной компенсации за цикл: повторный
// вход вернёт PartialFillError без новых ордеров.
func (e *Executor) compensate(ctx context.Context, symbol, filledVenue, failedVenue string, size float64) error {
	e.mu.Lock()
	already := e.compensated
	e.compensated = true
	e.mu.Unlock()

	perr := &models.PartialFillError{
		FilledVenue: filledVenue,
		FailedVenue: failedVenue,
		Symbol:      symbol,
		Size:        size,
	}

	if already {
		logger.Error("компенсация уже выполнялась в этом цикле, пропускаем")
		perr.Compensated = true
		return perr
	}

	logger.Error("❌ нога на %s не открылась, закрываем осиротевшую ногу на %s", failedVenue, filledVenue)

	client := e.byName(filledVenue)
	pos, err := client.GetPosition(ctx, symbol)
	if err != nil {
		perr.CompensateErr = err
		return perr
	}
	if pos == nil || pos.Size == 0 {
		// market-ордер мог не налиться — закрывать нечего
		perr.Compensated = true
		return perr
	}

	res, err := e.placeOrder(ctx, client, models.OrderRequest{
		Symbol:     symbol,
		Side:       pos.Side.Inverse().OrderSide(),
		Size:       pos.Size,
		Type:       models.OrderMarket,
		ReduceOnly: true,
	})
	if err != nil {
		perr.CompensateErr = err
		return perr
	}
	if !res.Ok() {
		perr.CompensateErr = &models.VenueAPIError{Venue: filledVenue, StatusCode: 400, Msg: res.Reason}
		return perr
	}

	logger.Info("✅ осиротевшая нога %s %.6f на %s закрыта", symbol, pos.Size, filledVenue)
	perr.Compensated = true
	return perr
}

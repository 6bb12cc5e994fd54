package executor

import (
	"context"
	"fmt"

	"dn_farming/internal/models"
	"dn_farming/pkg/logger"
)

// Close закрывает обе ноги. Перед каждым закрытием знак позиции
// перечитывается с биржи: локальное состояние могло разойтись.
func (e *Executor) Close(ctx context.Context, symbol string) error {
	var firstErr error
	for _, client := range []VenueClient{e.extended, e.lighter} {
		if err := e.closeVenue(ctx, client, symbol); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (e *Executor) closeVenue(ctx context.Context, client VenueClient, symbol string) error {
	pos, err := client.GetPosition(ctx, symbol)
	if err != nil {
		return fmt.Errorf("close %s: %w", client.Name(), err)
	}
	if pos == nil || pos.Size == 0 {
		logger.Info("на %s нечего закрывать по %s", client.Name(), symbol)
		return nil
	}

	// сторона закрытия из авторитетного знака, не из нашей памяти
	side := models.SideFromSigned(pos.SizeSigned).Inverse()

	res, err := e.placeOrder(ctx, client, models.OrderRequest{
		Symbol:     symbol,
		Side:       side.OrderSide(),
		Size:       pos.Size,
		Type:       models.OrderMarket,
		ReduceOnly: true,
	})
	if err != nil {
		return fmt.Errorf("close %s: %w", client.Name(), err)
	}

	// "same side" — гонка знака; ровно одна инверсия и повтор
	if res.Status == models.OrderRejected && models.IsSameSideRejection(res.Reason) {
		logger.Error("⚠️ %s отклонил закрытие (%s), инвертируем сторону", client.Name(), res.Reason)
		side = side.Inverse()
		res, err = e.placeOrder(ctx, client, models.OrderRequest{
			Symbol:     symbol,
			Side:       side.OrderSide(),
			Size:       pos.Size,
			Type:       models.OrderMarket,
			ReduceOnly: true,
		})
		if err != nil {
			return fmt.Errorf("close %s (inverted): %w", client.Name(), err)
		}
	}

	if !res.Ok() {
		return fmt.Errorf("close %s rejected: %s", client.Name(), res.Reason)
	}

	logger.Info("✅ позиция %s %.6f на %s закрыта", symbol, pos.Size, client.Name())
	return nil
}

package service

import (
	"context"
	"fmt"
)

const crossMarginMode = 0

func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	meta, err := c.marketIndex(ctx, symbol)
	if err != nil {
		return fmt.Errorf("SetLeverage: %w", err)
	}

	r, err := c.sendTx(ctx, txTypeUpdateLeverage, map[string]any{
		"market_index": meta.MarketID,
		"margin_mode":  crossMarginMode,
		"leverage":     leverage,
	})
	if err != nil {
		return fmt.Errorf("SetLeverage %s x%d: %w", symbol, leverage, err)
	}
	if r.Code != 200 {
		return fmt.Errorf("SetLeverage %s x%d: code=%d %s", symbol, leverage, r.Code, r.Message)
	}
	return nil
}

package service

import (
	"context"
	"fmt"
)

func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	meta, err := c.marketIndex(ctx, symbol)
	if err != nil {
		return fmt.Errorf("CancelOrder: %w", err)
	}

	r, err := c.sendTx(ctx, txTypeCancelOrder, map[string]any{
		"market_index": meta.MarketID,
		"order_index":  orderID,
	})
	if err != nil {
		return fmt.Errorf("CancelOrder %s: %w", orderID, err)
	}
	if r.Code != 200 {
		return fmt.Errorf("CancelOrder %s: code=%d %s", orderID, r.Code, r.Message)
	}
	return nil
}

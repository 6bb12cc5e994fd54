package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// GetOrderFill — у Lighter наша нога всегда market IOC, так что ордер
// либо в активных (ещё матчится), либо в истории с filled_base_amount.
func (c *Client) GetOrderFill(ctx context.Context, symbol, orderID string) (float64, bool, error) {
	meta, err := c.marketIndex(ctx, symbol)
	if err != nil {
		return 0, false, fmt.Errorf("GetOrderFill: %w", err)
	}

	path := "/api/v1/accountInactiveOrders?account_index=" + strconv.Itoa(c.accountIndex) +
		"&market_id=" + strconv.Itoa(meta.MarketID) + "&limit=20"
	data, err := c.doGet(ctx, path, true)
	if err != nil {
		return 0, false, fmt.Errorf("GetOrderFill: %w", err)
	}

	var r struct {
		Code   int `json:"code"`
		Orders []struct {
			TxHash           string `json:"tx_hash"`
			FilledBaseAmount string `json:"filled_base_amount"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return 0, false, fmt.Errorf("GetOrderFill decode: %w; body=%s", err, string(data))
	}
	if r.Code != 200 {
		return 0, false, fmt.Errorf("GetOrderFill code=%d RAW=%s", r.Code, string(data))
	}

	for _, o := range r.Orders {
		if o.TxHash == orderID {
			filled, _ := strconv.ParseFloat(o.FilledBaseAmount, 64)
			return filled, true, nil
		}
	}
	// ещё не доехал до истории
	return 0, false, nil
}

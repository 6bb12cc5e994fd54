package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// GetOrderFill — сколько налилось по ордеру. done=true когда ордер
// в терминальном статусе (FILLED/CANCELLED/REJECTED/EXPIRED).
func (c *Client) GetOrderFill(ctx context.Context, symbol, orderID string) (float64, bool, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/user/orders/"+orderID, nil)
	if err != nil {
		return 0, false, fmt.Errorf("GetOrderFill %s: %w", orderID, err)
	}

	var r struct {
		Status string `json:"status"`
		Data   struct {
			Status    string `json:"status"` // NEW / PARTIALLY_FILLED / FILLED / CANCELLED / REJECTED / EXPIRED
			FilledQty string `json:"filledQty"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return 0, false, fmt.Errorf("GetOrderFill decode: %w; body=%s", err, string(data))
	}

	filled, _ := strconv.ParseFloat(r.Data.FilledQty, 64)

	switch r.Data.Status {
	case "FILLED", "CANCELLED", "REJECTED", "EXPIRED":
		return filled, true, nil
	default:
		return filled, false, nil
	}
}

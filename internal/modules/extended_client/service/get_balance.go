package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"dn_farming/internal/models"
)

func (c *Client) GetBalance(ctx context.Context) (models.Balance, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/user/balance", nil)
	if err != nil {
		return models.Balance{}, fmt.Errorf("GetBalance: %w", err)
	}

	var r struct {
		Status string `json:"status"`
		Data   struct {
			Balance           string `json:"balance"`
			Equity            string `json:"equity"`
			AvailableForTrade string `json:"availableForTrade"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return models.Balance{}, fmt.Errorf("GetBalance decode: %w; body=%s", err, string(data))
	}
	if r.Status != "OK" {
		return models.Balance{}, fmt.Errorf("GetBalance status=%s RAW=%s", r.Status, string(data))
	}

	total, _ := strconv.ParseFloat(r.Data.Equity, 64)
	avail, _ := strconv.ParseFloat(r.Data.AvailableForTrade, 64)

	return models.Balance{
		Venue:     "extended",
		Available: avail,
		Total:     total,
		Currency:  "USD",
		UpdatedAt: time.Now(),
	}, nil
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"dn_farming/internal/models"
)

func (c *Client) GetBalance(ctx context.Context) (models.Balance, error) {
	data, err := c.doGet(ctx, "/api/v1/account?by=index&value="+strconv.Itoa(c.accountIndex), false)
	if err != nil {
		return models.Balance{}, fmt.Errorf("GetBalance: %w", err)
	}

	var r struct {
		Code     int `json:"code"`
		Accounts []struct {
			Collateral       string `json:"collateral"`
			AvailableBalance string `json:"available_balance"`
		} `json:"accounts"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return models.Balance{}, fmt.Errorf("GetBalance decode: %w; body=%s", err, string(data))
	}
	if r.Code != 200 || len(r.Accounts) == 0 {
		return models.Balance{}, fmt.Errorf("GetBalance code=%d RAW=%s", r.Code, string(data))
	}

	total, _ := strconv.ParseFloat(r.Accounts[0].Collateral, 64)
	avail, _ := strconv.ParseFloat(r.Accounts[0].AvailableBalance, 64)

	return models.Balance{
		Venue:     "lighter",
		Available: avail,
		Total:     total,
		Currency:  "USDC",
		UpdatedAt: time.Now(),
	}, nil
}

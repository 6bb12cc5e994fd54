package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"dn_farming/internal/models"
)

func (c *Client) GetTicker(ctx context.Context, symbol string) (models.Ticker, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/info/markets?market="+marketName(symbol), nil)
	if err != nil {
		return models.Ticker{}, fmt.Errorf("GetTicker: %w", err)
	}

	var r struct {
		Status string `json:"status"`
		Data   []struct {
			Name        string `json:"name"`
			MarketStats struct {
				BidPrice  string `json:"bidPrice"`
				AskPrice  string `json:"askPrice"`
				LastPrice string `json:"lastPrice"`
			} `json:"marketStats"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return models.Ticker{}, fmt.Errorf("GetTicker decode: %w; body=%s", err, string(data))
	}
	if r.Status != "OK" || len(r.Data) == 0 {
		return models.Ticker{}, fmt.Errorf("GetTicker: market %s not found RAW=%s", marketName(symbol), string(data))
	}

	bid, _ := strconv.ParseFloat(r.Data[0].MarketStats.BidPrice, 64)
	ask, _ := strconv.ParseFloat(r.Data[0].MarketStats.AskPrice, 64)
	last, _ := strconv.ParseFloat(r.Data[0].MarketStats.LastPrice, 64)

	if bid <= 0 || ask <= 0 {
		return models.Ticker{}, fmt.Errorf("GetTicker: empty book for %s", marketName(symbol))
	}

	return models.Ticker{Symbol: symbol, Bid: bid, Ask: ask, Last: last}, nil
}

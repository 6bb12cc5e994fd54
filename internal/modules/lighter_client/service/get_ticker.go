package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"dn_farming/internal/models"
)

// GetTicker — сначала WS-кеш стакана (если свежее 30s), иначе REST.
func (c *Client) GetTicker(ctx context.Context, symbol string) (models.Ticker, error) {
	if ob, ok := c.OrderbookTop(symbol); ok && time.Since(ob.UpdatedAt) < 30*time.Second {
		return models.Ticker{Symbol: symbol, Bid: ob.Bid, Ask: ob.Ask, Last: ob.Mid()}, nil
	}

	meta, err := c.marketIndex(ctx, symbol)
	if err != nil {
		return models.Ticker{}, fmt.Errorf("GetTicker: %w", err)
	}

	data, err := c.doGet(ctx, "/api/v1/orderBookDetails?market_id="+strconv.Itoa(meta.MarketID), false)
	if err != nil {
		return models.Ticker{}, fmt.Errorf("GetTicker: %w", err)
	}

	var r struct {
		Code             int `json:"code"`
		OrderBookDetails []struct {
			LastTradePrice string `json:"last_trade_price"`
			Bids           []struct {
				Price string `json:"price"`
			} `json:"bids"`
			Asks []struct {
				Price string `json:"price"`
			} `json:"asks"`
		} `json:"order_book_details"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return models.Ticker{}, fmt.Errorf("GetTicker decode: %w; body=%s", err, string(data))
	}
	if r.Code != 200 || len(r.OrderBookDetails) == 0 {
		return models.Ticker{}, fmt.Errorf("GetTicker code=%d RAW=%s", r.Code, string(data))
	}

	d := r.OrderBookDetails[0]
	if len(d.Bids) == 0 || len(d.Asks) == 0 {
		return models.Ticker{}, fmt.Errorf("GetTicker: empty book for %s", symbol)
	}

	bid, _ := strconv.ParseFloat(d.Bids[0].Price, 64)
	ask, _ := strconv.ParseFloat(d.Asks[0].Price, 64)
	last, _ := strconv.ParseFloat(d.LastTradePrice, 64)
	if bid <= 0 || ask <= 0 {
		return models.Ticker{}, fmt.Errorf("GetTicker: bad book bid=%.4f ask=%.4f", bid, ask)
	}

	return models.Ticker{Symbol: symbol, Bid: bid, Ask: ask, Last: last}, nil
}

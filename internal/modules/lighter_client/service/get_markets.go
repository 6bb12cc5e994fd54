package service

import (
	"context"
	"encoding/json"
	"fmt"
)

// marketIndex — id рынка по символу, метаданные грузим один раз.
func (c *Client) marketIndex(ctx context.Context, symbol string) (marketMeta, error) {
	c.mktMu.RLock()
	meta, ok := c.markets[symbol]
	c.mktMu.RUnlock()
	if ok {
		return meta, nil
	}

	if err := c.loadMarkets(ctx); err != nil {
		return marketMeta{}, err
	}

	c.mktMu.RLock()
	defer c.mktMu.RUnlock()
	meta, ok = c.markets[symbol]
	if !ok {
		return marketMeta{}, fmt.Errorf("marketIndex: unknown symbol %q", symbol)
	}
	return meta, nil
}

// SizeDecimals — сколько знаков размера поддерживает рынок. Обе ноги
// сайзим под самый грубый из двух шагов, иначе размеры разойдутся.
func (c *Client) SizeDecimals(ctx context.Context, symbol string) (int, error) {
	meta, err := c.marketIndex(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return meta.SizeDecimals, nil
}

func (c *Client) loadMarkets(ctx context.Context) error {
	data, err := c.doGet(ctx, "/api/v1/orderBooks", false)
	if err != nil {
		return fmt.Errorf("loadMarkets: %w", err)
	}

	var r struct {
		Code       int `json:"code"`
		OrderBooks []struct {
			Symbol                 string `json:"symbol"`
			MarketID               int    `json:"market_id"`
			SupportedSizeDecimals  int    `json:"supported_size_decimals"`
			SupportedPriceDecimals int    `json:"supported_price_decimals"`
		} `json:"order_books"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("loadMarkets decode: %w; body=%s", err, string(data))
	}
	if r.Code != 200 {
		return fmt.Errorf("loadMarkets code=%d RAW=%s", r.Code, string(data))
	}

	c.mktMu.Lock()
	defer c.mktMu.Unlock()
	for _, ob := range r.OrderBooks {
		c.markets[ob.Symbol] = marketMeta{
			MarketID:      ob.MarketID,
			SizeDecimals:  ob.SupportedSizeDecimals,
			PriceDecimals: ob.SupportedPriceDecimals,
		}
	}
	return nil
}

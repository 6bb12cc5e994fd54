package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"dn_farming/internal/models"
)

// PlaceOrder — L2 createOrder. Для market-ордера цена служит границей
// проскальзывания (2% от верха стакана).
func (c *Client) PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	if req.Size <= 0 {
		return models.OrderResult{}, fmt.Errorf("PlaceOrder: size <= 0")
	}

	meta, err := c.marketIndex(ctx, req.Symbol)
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("PlaceOrder: %w", err)
	}

	price := req.Price
	orderType := 0 // limit
	timeInForce := 1
	if req.Type == models.OrderMarket {
		orderType = 1
		timeInForce = 0 // IOC
		ticker, err := c.GetTicker(ctx, req.Symbol)
		if err != nil {
			return models.OrderResult{}, fmt.Errorf("PlaceOrder: %w", err)
		}
		if req.Side == "buy" {
			price = ticker.Ask * 1.02
		} else {
			price = ticker.Bid * 0.98
		}
	}
	if price <= 0 {
		return models.OrderResult{}, fmt.Errorf("PlaceOrder: price <= 0")
	}

	sizeScale := math.Pow10(meta.SizeDecimals)
	priceScale := math.Pow10(meta.PriceDecimals)

	txInfo := map[string]any{
		"market_index":       meta.MarketID,
		"client_order_index": time.Now().UnixNano(),
		"base_amount":        int64(math.Floor(req.Size*sizeScale + 1e-9)),
		"price":              int64(math.Round(price * priceScale)),
		"is_ask":             req.Side == "sell",
		"type":               orderType,
		"time_in_force":      timeInForce,
		"reduce_only":        req.ReduceOnly,
		"trigger_price":      0,
	}

	r, err := c.sendTx(ctx, txTypeCreateOrder, txInfo)
	if err != nil {
		// дедлайн сабмита: судьба ордера неизвестна, наружу — Timeout
		if errors.Is(err, context.DeadlineExceeded) {
			return models.OrderResult{Status: models.OrderTimeout, Reason: "submit timed out"}, nil
		}
		return models.OrderResult{}, fmt.Errorf("PlaceOrder: %w", err)
	}
	if r.Code != 200 {
		// типичный реджект на закрытии: "same side" / 1138, знак разошёлся;
		// код в тексте обязателен — ответ бывает без message
		return models.OrderResult{Status: models.OrderRejected, Reason: fmt.Sprintf("code=%d %s", r.Code, r.Message)}, nil
	}

	return models.OrderResult{OrderID: r.TxHash, Status: models.OrderAccepted}, nil
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"dn_farming/internal/models"
	"dn_farming/pkg/logger"

	"github.com/gorilla/websocket"
)

// StartStreams поднимает WS стакана (depth=1). Блокирует до первого
// обновления (до 10s), дальше живёт в фоне до отмены ctx.
func (c *Client) StartStreams(ctx context.Context, symbol string) error {
	go c.streamOrderbook(ctx, symbol)

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := c.OrderbookTop(symbol); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return fmt.Errorf("StartStreams: no orderbook for %s after 10s", symbol)
}

// OrderbookTop — последний верх стакана из кеша.
func (c *Client) OrderbookTop(symbol string) (models.OrderbookTop, bool) {
	c.obMu.RLock()
	defer c.obMu.RUnlock()
	ob, ok := c.ob[symbol]
	return ob, ok
}

// MarkPrice у Extended не стримится — PnL считаем по mid стакана.
func (c *Client) MarkPrice(symbol string) (models.MarketStats, bool) {
	return models.MarketStats{}, false
}

func (c *Client) streamOrderbook(ctx context.Context, symbol string) {
	url := c.wsURL + "/orderbooks/" + marketName(symbol) + "?depth=1"

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		logger.Info("[WS] extended connect orderbook %s", marketName(symbol))
		conn, _, err := c.wsDialer.DialContext(ctx, url, nil)
		if err != nil {
			logger.Error("[WS] extended dial error: %v", err)
			time.Sleep(time.Second)
			continue
		}

		// keepalive ping каждые 20s
		stopPing := make(chan struct{})
		go func() {
			t := time.NewTicker(20 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-stopPing:
					return
				case <-t.C:
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Error("[WS] extended read error: %v", err)
				_ = conn.Close()
				break
			}

			var frame struct {
				Type string `json:"type"` // SNAPSHOT / DELTA
				Data struct {
					Market string      `json:"m"`
					Bid    [][2]string `json:"b"` // [[price, qty], ...]
					Ask    [][2]string `json:"a"`
				} `json:"data"`
			}
			if err := json.Unmarshal(msg, &frame); err != nil {
				continue
			}
			if len(frame.Data.Bid) == 0 || len(frame.Data.Ask) == 0 {
				continue
			}

			bid, err1 := strconv.ParseFloat(frame.Data.Bid[0][0], 64)
			ask, err2 := strconv.ParseFloat(frame.Data.Ask[0][0], 64)
			if err1 != nil || err2 != nil || bid <= 0 || ask <= 0 {
				continue
			}

			c.obMu.Lock()
			c.ob[symbol] = models.OrderbookTop{
				Symbol:    symbol,
				Bid:       bid,
				Ask:       ask,
				UpdatedAt: time.Now(),
			}
			c.obMu.Unlock()
		}
		close(stopPing)

		select {
		case <-ctx.Done():
			return
		default:
			time.Sleep(time.Second)
		}
	}
}

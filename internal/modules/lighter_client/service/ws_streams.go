package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dn_farming/internal/models"
	"dn_farming/pkg/logger"

	"github.com/gorilla/websocket"
)

// StartStreams — один WS на всё: стакан, market_stats (mark price) и
// позиции аккаунта. Блокирует до первого снапшота стакана (до 10s).
func (c *Client) StartStreams(ctx context.Context, symbol string) error {
	meta, err := c.marketIndex(ctx, symbol)
	if err != nil {
		return fmt.Errorf("StartStreams: %w", err)
	}

	go c.streamLoop(ctx, symbol, meta.MarketID)

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

func (c *Client) OrderbookTop(symbol string) (models.OrderbookTop, bool) {
	c.obMu.RLock()
	defer c.obMu.RUnlock()
	ob, ok := c.ob[symbol]
	return ob, ok
}

// MarkPrice — из стрима market_stats; им считаем PnL на Lighter.
func (c *Client) MarkPrice(symbol string) (models.MarketStats, bool) {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	s, ok := c.stats[symbol]
	return s, ok
}

// CachedPosition — позиция из WS-кеша (быстрый PnL без REST).
func (c *Client) CachedPosition(symbol string) (models.Position, bool) {
	c.posMu.RLock()
	defer c.posMu.RUnlock()
	p, ok := c.positions[symbol]
	return p, ok
}

func (c *Client) streamLoop(ctx context.Context, symbol string, marketID int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		logger.Info("[WS] lighter connect market=%d", marketID)
		conn, _, err := c.wsDialer.DialContext(ctx, c.wsURL, nil)
		if err != nil {
			logger.Error("[WS] lighter dial error: %v", err)
			time.Sleep(time.Second)
			continue
		}

		subs := []map[string]string{
			{"type": "subscribe", "channel": "order_book/" + strconv.Itoa(marketID)},
			{"type": "subscribe", "channel": "market_stats/" + strconv.Itoa(marketID)},
			{"type": "subscribe", "channel": "account_all_positions/" + strconv.Itoa(c.accountIndex), "auth": c.authToken()},
		}
		subErr := false
		for _, sub := range subs {
			if err := conn.WriteJSON(sub); err != nil {
				logger.Error("[WS] lighter subscribe error: %v", err)
				subErr = true
				break
			}
		}
		if subErr {
			_ = conn.Close()
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
				logger.Error("[WS] lighter read error: %v", err)
				_ = conn.Close()
				break
			}
			c.handleFrame(symbol, marketID, msg)
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

func (c *Client) handleFrame(symbol string, marketID int, msg []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		return
	}

	// "subscribed/x" несёт снапшот, "update/x" — дельту; формат тела общий
	switch {
	case strings.HasSuffix(head.Type, "order_book"):
		c.handleOrderbook(symbol, msg)
	case strings.HasSuffix(head.Type, "market_stats"):
		c.handleMarketStats(symbol, msg)
	case strings.HasSuffix(head.Type, "account_all_positions"):
		c.handlePositions(symbol, marketID, msg)
	}
}

func (c *Client) handleOrderbook(symbol string, msg []byte) {
	var frame struct {
		OrderBook struct {
			Bids []struct {
				Price string `json:"price"`
			} `json:"bids"`
			Asks []struct {
				Price string `json:"price"`
			} `json:"asks"`
		} `json:"order_book"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil {
		return
	}
	if len(frame.OrderBook.Bids) == 0 || len(frame.OrderBook.Asks) == 0 {
		return
	}

	bid, err1 := strconv.ParseFloat(frame.OrderBook.Bids[0].Price, 64)
	ask, err2 := strconv.ParseFloat(frame.OrderBook.Asks[0].Price, 64)
	if err1 != nil || err2 != nil || bid <= 0 || ask <= 0 {
		return
	}

	c.obMu.Lock()
	c.ob[symbol] = models.OrderbookTop{Symbol: symbol, Bid: bid, Ask: ask, UpdatedAt: time.Now()}
	c.obMu.Unlock()
}

func (c *Client) handleMarketStats(symbol string, msg []byte) {
	var frame struct {
		MarketStats struct {
			MarkPrice   string `json:"mark_price"`
			IndexPrice  string `json:"index_price"`
			FundingRate string `json:"current_funding_rate"`
		} `json:"market_stats"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil {
		return
	}

	mark, err := strconv.ParseFloat(frame.MarketStats.MarkPrice, 64)
	if err != nil || mark <= 0 {
		return
	}
	index, _ := strconv.ParseFloat(frame.MarketStats.IndexPrice, 64)
	funding, _ := strconv.ParseFloat(frame.MarketStats.FundingRate, 64)

	c.statsMu.Lock()
	c.stats[symbol] = models.MarketStats{
		Symbol:      symbol,
		MarkPrice:   mark,
		IndexPrice:  index,
		FundingRate: funding,
		UpdatedAt:   time.Now(),
	}
	c.statsMu.Unlock()
}

func (c *Client) handlePositions(symbol string, marketID int, msg []byte) {
	var frame struct {
		Positions map[string][]struct {
			MarketID      int    `json:"market_id"`
			Sign          int    `json:"sign"`
			Position      string `json:"position"`
			AvgEntryPrice string `json:"avg_entry_price"`
			UnrealizedPnl string `json:"unrealized_pnl"`
		} `json:"positions"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil {
		return
	}

	rows, ok := frame.Positions[strconv.Itoa(marketID)]
	if !ok || len(rows) == 0 {
		return
	}
	p := rows[0]

	size, _ := strconv.ParseFloat(p.Position, 64)
	entry, _ := strconv.ParseFloat(p.AvgEntryPrice, 64)
	upnl, _ := strconv.ParseFloat(p.UnrealizedPnl, 64)

	signed := size
	side := models.SideLong
	if p.Sign < 0 {
		signed = -size
		side = models.SideShort
	}

	c.posMu.Lock()
	c.positions[symbol] = models.Position{
		Venue:         "lighter",
		Symbol:        symbol,
		Side:          side,
		Size:          size,
		SizeSigned:    signed,
		EntryPrice:    entry,
		UnrealizedPnl: upnl,
		UpdatedAt:     time.Now(),
	}
	c.posAt = time.Now()
	c.posMu.Unlock()
}

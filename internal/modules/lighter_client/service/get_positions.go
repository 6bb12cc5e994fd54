package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"dn_farming/internal/models"
)

// GetPositions — REST, источник истины. WS-кеш (ws_streams) быстрее,
// но перед закрытием знак позиции перечитываем отсюда.
func (c *Client) GetPositions(ctx context.Context) ([]models.Position, error) {
	data, err := c.doGet(ctx, "/api/v1/account?by=index&value="+strconv.Itoa(c.accountIndex), false)
	if err != nil {
		return nil, fmt.Errorf("GetPositions: %w", err)
	}

	var r struct {
		Code     int `json:"code"`
		Accounts []struct {
			Positions []struct {
				MarketID      int    `json:"market_id"`
				Symbol        string `json:"symbol"`
				Sign          int    `json:"sign"` // 1 = long, -1 = short
				Position      string `json:"position"`
				AvgEntryPrice string `json:"avg_entry_price"`
				UnrealizedPnl string `json:"unrealized_pnl"`
			} `json:"positions"`
		} `json:"accounts"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("GetPositions decode: %w; body=%s", err, string(data))
	}
	if r.Code != 200 || len(r.Accounts) == 0 {
		return nil, fmt.Errorf("GetPositions code=%d RAW=%s", r.Code, string(data))
	}

	out := make([]models.Position, 0, len(r.Accounts[0].Positions))
	for _, p := range r.Accounts[0].Positions {
		size, _ := strconv.ParseFloat(p.Position, 64)
		if size == 0 {
			continue
		}
		entry, _ := strconv.ParseFloat(p.AvgEntryPrice, 64)
		upnl, _ := strconv.ParseFloat(p.UnrealizedPnl, 64)

		signed := size
		side := models.SideLong
		if p.Sign < 0 {
			signed = -size
			side = models.SideShort
		}

		out = append(out, models.Position{
			Venue:         "lighter",
			Symbol:        p.Symbol,
			Side:          side,
			Size:          size,
			SizeSigned:    signed,
			EntryPrice:    entry,
			UnrealizedPnl: upnl,
			UpdatedAt:     time.Now(),
		})
	}
	return out, nil
}

func (c *Client) GetPosition(ctx context.Context, symbol string) (*models.Position, error) {
	positions, err := c.GetPositions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		if positions[i].Symbol == symbol {
			return &positions[i], nil
		}
	}
	return nil, nil
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dn_farming/internal/models"
)

func (c *Client) GetPositions(ctx context.Context) ([]models.Position, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/user/positions", nil)
	if err != nil {
		return nil, fmt.Errorf("GetPositions: %w", err)
	}

	var r struct {
		Status string `json:"status"`
		Data   []struct {
			Market        string `json:"market"`
			Side          string `json:"side"` // "LONG" / "SHORT"
			Size          string `json:"size"`
			OpenPrice     string `json:"openPrice"`
			MarkPrice     string `json:"markPrice"`
			UnrealisedPnl string `json:"unrealisedPnl"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("GetPositions decode: %w; body=%s", err, string(data))
	}
	if r.Status != "OK" {
		return nil, fmt.Errorf("GetPositions status=%s RAW=%s", r.Status, string(data))
	}

	out := make([]models.Position, 0, len(r.Data))
	for _, p := range r.Data {
		size, _ := strconv.ParseFloat(p.Size, 64)
		entry, _ := strconv.ParseFloat(p.OpenPrice, 64)
		mark, _ := strconv.ParseFloat(p.MarkPrice, 64)
		upnl, _ := strconv.ParseFloat(p.UnrealisedPnl, 64)

		side := models.SideLong
		signed := size
		if strings.EqualFold(p.Side, "SHORT") {
			side = models.SideShort
			signed = -size
		}

		out = append(out, models.Position{
			Venue:         "extended",
			Symbol:        strings.TrimSuffix(p.Market, "-USD"),
			Side:          side,
			Size:          size,
			SizeSigned:    signed,
			EntryPrice:    entry,
			MarkPrice:     mark,
			UnrealizedPnl: upnl,
			UpdatedAt:     time.Now(),
		})
	}
	return out, nil
}

// GetPosition — позиция по символу, nil если нет (или size == 0).
func (c *Client) GetPosition(ctx context.Context, symbol string) (*models.Position, error) {
	positions, err := c.GetPositions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		if positions[i].Symbol == symbol && positions[i].Size > 0 {
			return &positions[i], nil
		}
	}
	return nil, nil
}

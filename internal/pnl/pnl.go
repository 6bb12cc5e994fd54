package pnl

import (
	"context"
	"fmt"
	"time"

	"dn_farming/internal/models"
)

// Feed — кеш рыночных данных одной биржи (реализуют venue-клиенты).
type Feed interface {
	OrderbookTop(symbol string) (models.OrderbookTop, bool)
	MarkPrice(symbol string) (models.MarketStats, bool)
}

// Aggregator считает комбинированный PnL пары ног. Источник цены на
// ногу по убыванию доверия: mark price из стрима → mid стакана →
// unrealized PnL как отдала биржа.
type Aggregator struct {
	extended Feed
	lighter  Feed
}

func New(extended, lighter Feed) *Aggregator {
	return &Aggregator{extended: extended, lighter: lighter}
}

type Combined struct {
	Extended float64
	Lighter  float64
	Total    float64
}

func (a *Aggregator) Combined(extPos, litPos *models.Position) Combined {
	var c Combined
	if extPos != nil {
		c.Extended = legPnl(a.extended, *extPos)
	}
	if litPos != nil {
		c.Lighter = legPnl(a.lighter, *litPos)
	}
	c.Total = c.Extended + c.Lighter
	return c
}

// legPnl: (цена - вход) * подписанный размер; знак сам даёт направление.
func legPnl(feed Feed, pos models.Position) float64 {
	if pos.EntryPrice <= 0 || pos.SizeSigned == 0 {
		return pos.UnrealizedPnl
	}

	if stats, ok := feed.MarkPrice(pos.Symbol); ok && stats.MarkPrice > 0 {
		return (stats.MarkPrice - pos.EntryPrice) * pos.SizeSigned
	}
	if ob, ok := feed.OrderbookTop(pos.Symbol); ok && ob.Bid > 0 && ob.Ask > 0 {
		return (ob.Mid() - pos.EntryPrice) * pos.SizeSigned
	}

	return pos.UnrealizedPnl
}

// PositionQuerier — прямой REST-запрос позиции (venue-клиенты).
type PositionQuerier interface {
	Name() string
	GetPosition(ctx context.Context, symbol string) (*models.Position, error)
}

// Reported — комбинированный PnL прямым опросом бирж: unrealized PnL
// из авторитетных позиций. Запасной путь, когда стримы легли и кеши
// несвежие; nil-позиция (нога уже закрыта) даёт вклад 0.
func Reported(ctx context.Context, symbol string, extended, lighter PositionQuerier) (Combined, error) {
	var c Combined

	extPos, err := extended.GetPosition(ctx, symbol)
	if err != nil {
		return c, fmt.Errorf("pnl poll %s: %w", extended.Name(), err)
	}
	litPos, err := lighter.GetPosition(ctx, symbol)
	if err != nil {
		return c, fmt.Errorf("pnl poll %s: %w", lighter.Name(), err)
	}

	if extPos != nil {
		c.Extended = extPos.UnrealizedPnl
	}
	if litPos != nil {
		c.Lighter = litPos.UnrealizedPnl
	}
	c.Total = c.Extended + c.Lighter
	return c, nil
}

// IsFresh — true только когда каждый участвующий кеш моложе maxAge.
// Отсутствие кеша = несвежо: решение о закрытии по таким данным не принимаем.
func (a *Aggregator) IsFresh(symbol string, maxAge time.Duration) bool {
	now := time.Now()

	fresh := func(feed Feed) bool {
		if stats, ok := feed.MarkPrice(symbol); ok {
			return now.Sub(stats.UpdatedAt) <= maxAge
		}
		if ob, ok := feed.OrderbookTop(symbol); ok {
			return now.Sub(ob.UpdatedAt) <= maxAge
		}
		return false
	}

	return fresh(a.extended) && fresh(a.lighter)
}

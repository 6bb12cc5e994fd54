package models

import "time"

type Ticker struct {
	Symbol string
	Bid    float64
	Ask    float64
	Last   float64
}

// Mid — средняя цена (bid+ask)/2, менее шумная чем last.
func (t Ticker) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// OrderbookTop — верх стакана из WebSocket-кеша.
type OrderbookTop struct {
	Symbol    string
	Bid       float64
	Ask       float64
	UpdatedAt time.Time
}

func (o OrderbookTop) Mid() float64 { return (o.Bid + o.Ask) / 2 }

// MarketStats — стрим market_stats (Lighter): mark price и funding.
type MarketStats struct {
	Symbol      string
	MarkPrice   float64
	IndexPrice  float64
	FundingRate float64
	UpdatedAt   time.Time
}

type Balance struct {
	Venue     string
	Available float64
	Total     float64
	Currency  string
	UpdatedAt time.Time
}

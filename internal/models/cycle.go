package models

import "time"

type LegStatus string

const (
	LegAccepted LegStatus = "accepted"
	LegRejected LegStatus = "rejected"
	LegTimeout  LegStatus = "timeout"
	LegFilled   LegStatus = "filled"
)

// Leg — одна нога delta-neutral пары на конкретной бирже.
type Leg struct {
	Venue   string
	OrderID string
	Side    Side
	Size    float64
	Price   float64
	Status  LegStatus
}

type CloseReason string

const (
	ClosePositivePnl  CloseReason = "positive_pnl"
	ClosePnlRecovered CloseReason = "pnl_recovered"
	CloseTimeoutPnl   CloseReason = "timeout_negative_pnl"
	CloseInterrupted  CloseReason = "interrupted"
)

// TradeCycle — один цикл open→hold→close. Инвариант: не больше одного
// открытого цикла на символ; ноги противоположны и близки по notional.
type TradeCycle struct {
	ID             string
	Symbol         string
	Leverage       int
	Margin         float64
	Legs           [2]Leg
	OpenedAt       time.Time
	TargetDuration time.Duration
	ClosedAt       time.Time
	CloseReason    CloseReason
}

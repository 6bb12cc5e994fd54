package models

import "time"

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Inverse — противоположная сторона (для закрытия и для второй ноги).
func (s Side) Inverse() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// OrderSide — сторона ордера в терминах биржи ("buy"/"sell").
func (s Side) OrderSide() string {
	if s == SideLong {
		return "buy"
	}
	return "sell"
}

// SideFromSigned определяет сторону по знаку size (как отдаёт SDK Lighter).
func SideFromSigned(sizeSigned float64) Side {
	if sizeSigned >= 0 {
		return SideLong
	}
	return SideShort
}

// Position — снимок позиции на одной бирже. Источник истины — биржа,
// локально только read-through кеш.
type Position struct {
	Venue         string
	Symbol        string
	Side          Side
	Size          float64 // всегда >= 0
	SizeSigned    float64 // + для LONG, - для SHORT
	EntryPrice    float64
	MarkPrice     float64
	UnrealizedPnl float64
	UpdatedAt     time.Time
}

package models

import (
	"errors"
	"fmt"
	"strings"
)

// VenueAPIError — ошибка REST-вызова биржи. Transient (5xx) можно
// ретраить для идемпотентных запросов.
type VenueAPIError struct {
	Venue      string
	StatusCode int
	Msg        string
}

func (e *VenueAPIError) Error() string {
	return fmt.Sprintf("%s api error (http %d): %s", e.Venue, e.StatusCode, e.Msg)
}

func (e *VenueAPIError) Transient() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsTransient — предикат для retry-хелпера.
func IsTransient(err error) bool {
	var apiErr *VenueAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	return false
}

// PartialFillError — одна нога открылась, вторая нет. К моменту
// возврата orphan-нога уже закрыта (или явно отмечена как требующая рук).
type PartialFillError struct {
	FilledVenue   string
	FailedVenue   string
	Symbol        string
	Size          float64
	Compensated   bool
	CompensateErr error
}

func (e *PartialFillError) Error() string {
	if e.Compensated {
		return fmt.Sprintf("partial fill: %s leg filled, %s failed; orphan %s %.6f closed",
			e.FilledVenue, e.FailedVenue, e.Symbol, e.Size)
	}
	return fmt.Sprintf("partial fill: %s leg filled, %s failed; ORPHAN %s %.6f REQUIRES MANUAL ATTENTION: %v",
		e.FilledVenue, e.FailedVenue, e.Symbol, e.Size, e.CompensateErr)
}

// BridgeTimeoutError — средства не дошли до адреса на Arbitrum за
// отведённое время. Не потеряны: остались on-chain или в бридже.
type BridgeTimeoutError struct {
	Address  string
	Expected float64
	Observed float64
}

func (e *BridgeTimeoutError) Error() string {
	return fmt.Sprintf("bridge timeout: %s has $%.2f, expected $%.2f (funds are NOT lost, check the bridge manually)",
		e.Address, e.Observed, e.Expected)
}

type InsufficientFundsError struct {
	Required  float64
	Available float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need $%.2f total, have $%.2f (short $%.2f)",
		e.Required, e.Available, e.Required-e.Available)
}

func (e *InsufficientFundsError) Shortfall() float64 { return e.Required - e.Available }

// IsSameSideRejection — ожидаемая гонка на закрытии: локальный знак
// позиции разошёлся с биржевым. Лечится одной инверсией стороны.
func IsSameSideRejection(reason string) bool {
	low := strings.ToLower(reason)
	return strings.Contains(low, "same side") || strings.Contains(low, "1138")
}

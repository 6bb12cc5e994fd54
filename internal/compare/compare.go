package compare

import (
	"fmt"

	"dn_farming/internal/helper"
	"dn_farming/internal/models"
)

// Decision — кто лонг, кто шорт. Дороже продаём, дешевле покупаем:
// биржа с большим mid получает SHORT. При равенстве LONG на extended.
type Decision struct {
	ExtendedSide  models.Side
	LighterSide   models.Side
	PriceExtended float64
	PriceLighter  float64
	SpreadPercent float64
}

func Decide(extended, lighter models.Ticker) (Decision, error) {
	if extended.Bid <= 0 || extended.Ask <= 0 {
		return Decision{}, fmt.Errorf("compare: extended book is empty")
	}
	if lighter.Bid <= 0 || lighter.Ask <= 0 {
		return Decision{}, fmt.Errorf("compare: lighter book is empty")
	}

	midExt := extended.Mid()
	midLit := lighter.Mid()

	d := Decision{
		PriceExtended: midExt,
		PriceLighter:  midLit,
	}

	avg := (midExt + midLit) / 2
	if avg > 0 {
		d.SpreadPercent = (midExt - midLit) / avg * 100
		if d.SpreadPercent < 0 {
			d.SpreadPercent = -d.SpreadPercent
		}
	}

	if midExt > midLit {
		d.ExtendedSide = models.SideShort
		d.LighterSide = models.SideLong
	} else {
		d.ExtendedSide = models.SideLong
		d.LighterSide = models.SideShort
	}

	return d, nil
}

// LegSize — размер ноги в базовой монете: margin * safety * leverage / price,
// округление вниз до decimals знаков.
func LegSize(margin, safetyFactor float64, leverage int, price float64, decimals int) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("compare: reference price <= 0")
	}
	notional := margin * safetyFactor * float64(leverage)
	size := helper.RoundDownToDecimals(notional/price, decimals)

	if size <= 0 {
		return 0, fmt.Errorf("compare: computed size is zero (margin too small for %d decimals)", decimals)
	}
	return size, nil
}

package compare

import (
	"testing"

	"dn_farming/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticker(bid, ask float64) models.Ticker {
	return models.Ticker{Bid: bid, Ask: ask}
}

func TestDecide_HigherMidGetsShort(t *testing.T) {
	// extended mid 100.15, lighter mid 99.95
	d, err := Decide(ticker(100.10, 100.20), ticker(99.90, 100.00))
	require.NoError(t, err)

	assert.Equal(t, models.SideShort, d.ExtendedSide)
	assert.Equal(t, models.SideLong, d.LighterSide)
	assert.InDelta(t, 100.15, d.PriceExtended, 1e-9)
	assert.InDelta(t, 99.95, d.PriceLighter, 1e-9)
	assert.InDelta(t, 0.1999, d.SpreadPercent, 0.001)
}

func TestDecide_LowerMidGetsLong(t *testing.T) {
	d, err := Decide(ticker(99.90, 100.00), ticker(100.10, 100.20))
	require.NoError(t, err)

	assert.Equal(t, models.SideLong, d.ExtendedSide)
	assert.Equal(t, models.SideShort, d.LighterSide)
}

func TestDecide_TieLongsExtended(t *testing.T) {
	d, err := Decide(ticker(100.00, 100.10), ticker(100.00, 100.10))
	require.NoError(t, err)

	assert.Equal(t, models.SideLong, d.ExtendedSide)
	assert.Equal(t, models.SideShort, d.LighterSide)
	assert.Zero(t, d.SpreadPercent)
}

func TestDecide_EmptyBook(t *testing.T) {
	_, err := Decide(ticker(0, 0), ticker(100, 100.1))
	assert.Error(t, err)

	_, err = Decide(ticker(100, 100.1), ticker(100, 0))
	assert.Error(t, err)
}

func TestLegSize(t *testing.T) {
	// 100 * 0.90 * 3 / 50 = 5.4
	size, err := LegSize(100, 0.90, 3, 50, 1)
	require.NoError(t, err)
	assert.InDelta(t, 5.4, size, 1e-9)
}

func TestLegSize_RoundsDown(t *testing.T) {
	// 100 * 0.90 * 3 / 70 = 3.857142... -> 3.85 при 2 знаках
	size, err := LegSize(100, 0.90, 3, 70, 2)
	require.NoError(t, err)
	assert.InDelta(t, 3.85, size, 1e-9)
}

func TestLegSize_ZeroAfterRounding(t *testing.T) {
	// размер меньше шага рынка
	_, err := LegSize(0.01, 0.90, 1, 50000, 0)
	assert.Error(t, err)
}

func TestLegSize_BadPrice(t *testing.T) {
	_, err := LegSize(100, 0.90, 3, 0, 2)
	assert.Error(t, err)
}

package pnl

import (
	"context"
	"errors"
	"testing"
	"time"

	"dn_farming/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	ob      models.OrderbookTop
	obOk    bool
	stats   models.MarketStats
	statsOk bool
}

func (f *fakeFeed) OrderbookTop(string) (models.OrderbookTop, bool) { return f.ob, f.obOk }
func (f *fakeFeed) MarkPrice(string) (models.MarketStats, bool)     { return f.stats, f.statsOk }

func longPos(entry, size float64) *models.Position {
	return &models.Position{Symbol: "ETH", Side: models.SideLong, Size: size, SizeSigned: size, EntryPrice: entry, UnrealizedPnl: 42}
}

func shortPos(entry, size float64) *models.Position {
	return &models.Position{Symbol: "ETH", Side: models.SideShort, Size: size, SizeSigned: -size, EntryPrice: entry, UnrealizedPnl: -42}
}

func TestCombined_PrefersMarkPrice(t *testing.T) {
	ext := &fakeFeed{
		stats:   models.MarketStats{MarkPrice: 110, UpdatedAt: time.Now()},
		statsOk: true,
		ob:      models.OrderbookTop{Bid: 200, Ask: 201, UpdatedAt: time.Now()},
		obOk:    true,
	}
	lit := &fakeFeed{
		stats:   models.MarketStats{MarkPrice: 110, UpdatedAt: time.Now()},
		statsOk: true,
	}
	a := New(ext, lit)

	// long +1 @ 100, mark 110 -> +10; short -1 @ 100, mark 110 -> -10
	c := a.Combined(longPos(100, 1), shortPos(100, 1))
	assert.InDelta(t, 10, c.Extended, 1e-9)
	assert.InDelta(t, -10, c.Lighter, 1e-9)
	assert.InDelta(t, 0, c.Total, 1e-9)
}

func TestCombined_FallsBackToMid(t *testing.T) {
	ext := &fakeFeed{
		ob:   models.OrderbookTop{Bid: 104, Ask: 106, UpdatedAt: time.Now()},
		obOk: true,
	}
	a := New(ext, &fakeFeed{})

	// mid 105, long 2 @ 100 -> +10; lighter без кеша -> reported UnrealizedPnl
	c := a.Combined(longPos(100, 2), shortPos(100, 1))
	assert.InDelta(t, 10, c.Extended, 1e-9)
	assert.InDelta(t, -42, c.Lighter, 1e-9)
}

func TestCombined_ReportedWhenNoFeeds(t *testing.T) {
	a := New(&fakeFeed{}, &fakeFeed{})
	c := a.Combined(longPos(100, 1), nil)
	assert.InDelta(t, 42, c.Extended, 1e-9)
	assert.Zero(t, c.Lighter)
	assert.InDelta(t, 42, c.Total, 1e-9)
}

func TestIsFresh_BothFeedsMustBeFresh(t *testing.T) {
	now := time.Now()
	fresh := &fakeFeed{stats: models.MarketStats{MarkPrice: 100, UpdatedAt: now}, statsOk: true}
	stale := &fakeFeed{stats: models.MarketStats{MarkPrice: 100, UpdatedAt: now.Add(-time.Minute)}, statsOk: true}

	assert.True(t, New(fresh, fresh).IsFresh("ETH", 10*time.Second))
	assert.False(t, New(fresh, stale).IsFresh("ETH", 10*time.Second))
	assert.False(t, New(stale, fresh).IsFresh("ETH", 10*time.Second))
}

func TestIsFresh_MissingCacheIsStale(t *testing.T) {
	fresh := &fakeFeed{stats: models.MarketStats{MarkPrice: 100, UpdatedAt: time.Now()}, statsOk: true}
	assert.False(t, New(fresh, &fakeFeed{}).IsFresh("ETH", 10*time.Second))
}

type fakeQuerier struct {
	name string
	pos  *models.Position
	err  error
}

func (f *fakeQuerier) Name() string { return f.name }
func (f *fakeQuerier) GetPosition(context.Context, string) (*models.Position, error) {
	return f.pos, f.err
}

func TestReported_DirectPollSumsVenuePnl(t *testing.T) {
	// стримы лежат — PnL берём прямым опросом позиций
	ext := &fakeQuerier{name: "extended", pos: &models.Position{Symbol: "ETH", UnrealizedPnl: 6.5}}
	lit := &fakeQuerier{name: "lighter", pos: &models.Position{Symbol: "ETH", UnrealizedPnl: 3.5}}

	c, err := Reported(context.Background(), "ETH", ext, lit)
	require.NoError(t, err)
	assert.InDelta(t, 6.5, c.Extended, 1e-9)
	assert.InDelta(t, 3.5, c.Lighter, 1e-9)
	assert.InDelta(t, 10, c.Total, 1e-9)
}

func TestReported_NilPositionContributesZero(t *testing.T) {
	ext := &fakeQuerier{name: "extended", pos: &models.Position{Symbol: "ETH", UnrealizedPnl: -2}}
	lit := &fakeQuerier{name: "lighter"}

	c, err := Reported(context.Background(), "ETH", ext, lit)
	require.NoError(t, err)
	assert.Zero(t, c.Lighter)
	assert.InDelta(t, -2, c.Total, 1e-9)
}

func TestReported_QueryErrorPropagates(t *testing.T) {
	ext := &fakeQuerier{name: "extended", err: errors.New("rest down")}
	lit := &fakeQuerier{name: "lighter"}

	_, err := Reported(context.Background(), "ETH", ext, lit)
	assert.ErrorContains(t, err, "extended")
}

func TestIsFresh_Monotonic(t *testing.T) {
	// если свежо при maxAge, свежо и при любом большем maxAge
	feed := &fakeFeed{stats: models.MarketStats{MarkPrice: 100, UpdatedAt: time.Now().Add(-5 * time.Second)}, statsOk: true}
	a := New(feed, feed)

	assert.False(t, a.IsFresh("ETH", 2*time.Second))
	assert.True(t, a.IsFresh("ETH", 10*time.Second))
	assert.True(t, a.IsFresh("ETH", time.Minute))
}

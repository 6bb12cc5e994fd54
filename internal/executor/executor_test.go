package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"dn_farming/internal/compare"
	"dn_farming/internal/models"
	"dn_farming/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init("")
	os.Exit(m.Run())
}

// fakeVenue — биржа в памяти: market-ордера наливаются мгновенно.
type fakeVenue struct {
	name string

	mu     sync.Mutex
	pos    map[string]*models.Position
	orders []models.OrderRequest

	rejectOpens     bool   // реджектить все не-reduce-only ордера
	timeoutOpens    bool   // отвечать Timeout на не-reduce-only ордера
	rejectReason    string
	sameSideRejects int    // сколько первых reduce-only ордеров реджектить как "same side"
	placeErr        error
	nextOrderID     int
}

func newFakeVenue(name string) *fakeVenue {
	return &fakeVenue{name: name, pos: make(map[string]*models.Position)}
}

func (f *fakeVenue) Name() string { return f.name }

func (f *fakeVenue) GetTicker(_ context.Context, symbol string) (models.Ticker, error) {
	return models.Ticker{Symbol: symbol, Bid: 99.9, Ask: 100.1}, nil
}

func (f *fakeVenue) GetPosition(_ context.Context, symbol string) (*models.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pos[symbol]
	if !ok || p.Size == 0 {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeVenue) PlaceOrder(_ context.Context, req models.OrderRequest) (models.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.orders = append(f.orders, req)
	if f.placeErr != nil {
		return models.OrderResult{}, f.placeErr
	}
	if req.ReduceOnly && f.sameSideRejects > 0 {
		f.sameSideRejects--
		return models.OrderResult{Status: models.OrderRejected, Reason: "order would not reduce: same side (1138)"}, nil
	}
	if !req.ReduceOnly && f.timeoutOpens {
		return models.OrderResult{Status: models.OrderTimeout, Reason: "submit timed out"}, nil
	}
	if !req.ReduceOnly && f.rejectOpens {
		reason := f.rejectReason
		if reason == "" {
			reason = "rejected by venue"
		}
		return models.OrderResult{Status: models.OrderRejected, Reason: reason}, nil
	}

	signed := req.Size
	if req.Side == "sell" {
		signed = -req.Size
	}
	if req.ReduceOnly {
		delete(f.pos, req.Symbol)
	} else {
		f.pos[req.Symbol] = &models.Position{
			Venue:      f.name,
			Symbol:     req.Symbol,
			Side:       models.SideFromSigned(signed),
			Size:       req.Size,
			SizeSigned: signed,
			EntryPrice: 100,
			UpdatedAt:  time.Now(),
		}
	}

	f.nextOrderID++
	return models.OrderResult{OrderID: fmt.Sprintf("%s-%d", f.name, f.nextOrderID), Status: models.OrderAccepted}, nil
}

func (f *fakeVenue) CancelOrder(context.Context, string, string) error { return nil }

func (f *fakeVenue) GetOrderFill(_ context.Context, symbol, _ string) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pos[symbol]; ok {
		return p.Size, true, nil
	}
	return 0, true, nil
}

func (f *fakeVenue) SetLeverage(context.Context, string, int) error { return nil }

func (f *fakeVenue) reduceOnlyOrders() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.orders {
		if o.ReduceOnly {
			n++
		}
	}
	return n
}

var decision = compare.Decision{ExtendedSide: models.SideShort, LighterSide: models.SideLong}

func TestOpenMarket_BothLegsFilled(t *testing.T) {
	ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
	e := New(ext, lit, 15)

	legs, err := e.OpenMarket(context.Background(), "ETH", decision, 5.4)
	require.NoError(t, err)
	assert.Equal(t, models.LegAccepted, legs[0].Status)
	assert.Equal(t, models.LegAccepted, legs[1].Status)

	extPos, _ := ext.GetPosition(context.Background(), "ETH")
	litPos, _ := lit.GetPosition(context.Background(), "ETH")
	require.NotNil(t, extPos)
	require.NotNil(t, litPos)
	// знаки противоположны
	assert.Negative(t, extPos.SizeSigned*litPos.SizeSigned)
}

func TestOpenMarket_OneSidedFillCompensated(t *testing.T) {
	ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
	lit.rejectOpens = true
	e := New(ext, lit, 15)

	_, err := e.OpenMarket(context.Background(), "ETH", decision, 5.4)
	var pfe *models.PartialFillError
	require.ErrorAs(t, err, &pfe)
	assert.True(t, pfe.Compensated)
	assert.Equal(t, "extended", pfe.FilledVenue)
	assert.Equal(t, "lighter", pfe.FailedVenue)

	// осиротевшая нога закрыта reduce-only ордером
	assert.Equal(t, 1, ext.reduceOnlyOrders())
	pos, _ := ext.GetPosition(context.Background(), "ETH")
	assert.Nil(t, pos)
}

func TestOpenMarket_AtMostOneCompensationPerCycle(t *testing.T) {
	ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
	lit.rejectOpens = true
	e := New(ext, lit, 15)

	_, err := e.OpenMarket(context.Background(), "ETH", decision, 5.4)
	require.Error(t, err)
	assert.Equal(t, 1, ext.reduceOnlyOrders())

	// повторный провал в том же цикле: ордеров компенсации больше нет
	_, err = e.OpenMarket(context.Background(), "ETH", decision, 5.4)
	var pfe *models.PartialFillError
	require.ErrorAs(t, err, &pfe)
	assert.Equal(t, 1, ext.reduceOnlyOrders())

	// новый цикл снимает guard
	e.ResetCycle()
	_, err = e.OpenMarket(context.Background(), "ETH", decision, 5.4)
	require.Error(t, err)
	assert.Equal(t, 2, ext.reduceOnlyOrders())
}

func TestOpenMarket_TimeoutLegCompensated(t *testing.T) {
	ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
	lit.timeoutOpens = true
	e := New(ext, lit, 15)

	legs, err := e.OpenMarket(context.Background(), "ETH", decision, 5.4)
	var pfe *models.PartialFillError
	require.ErrorAs(t, err, &pfe)
	assert.True(t, pfe.Compensated)
	assert.Equal(t, models.LegTimeout, legs[1].Status)

	// налившаяся extended-нога закрыта
	pos, _ := ext.GetPosition(context.Background(), "ETH")
	assert.Nil(t, pos)
}

func TestOpenMarket_BothRejected(t *testing.T) {
	ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
	ext.rejectOpens = true
	lit.rejectOpens = true
	e := New(ext, lit, 15)

	_, err := e.OpenMarket(context.Background(), "ETH", decision, 5.4)
	require.Error(t, err)
	var pfe *models.PartialFillError
	assert.False(t, errors.As(err, &pfe))
	// компенсировать нечего
	assert.Zero(t, ext.reduceOnlyOrders())
	assert.Zero(t, lit.reduceOnlyOrders())
}

func TestVerify_SucceedsAndIsIdempotent(t *testing.T) {
	ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
	e := New(ext, lit, 15)

	_, err := e.OpenMarket(context.Background(), "ETH", decision, 5.4)
	require.NoError(t, err)

	require.NoError(t, e.Verify(context.Background(), "ETH", 0))
	// чистое чтение: повторный вызов снова успешен
	require.NoError(t, e.Verify(context.Background(), "ETH", 0))
}

func TestVerify_TypedFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("both_not_opened", func(t *testing.T) {
		e := New(newFakeVenue("extended"), newFakeVenue("lighter"), 15)
		err := e.Verify(ctx, "ETH", 0)
		var verr *VerifyError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, VerifyBothNotOpened, verr.Reason)
	})

	t.Run("lighter_not_opened", func(t *testing.T) {
		ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
		_, _ = ext.PlaceOrder(ctx, models.OrderRequest{Symbol: "ETH", Side: "sell", Size: 5.4, Type: models.OrderMarket})
		e := New(ext, lit, 15)
		err := e.Verify(ctx, "ETH", 0)
		var verr *VerifyError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, VerifyLighterNotOpened, verr.Reason)
	})

	t.Run("extended_not_opened", func(t *testing.T) {
		ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
		_, _ = lit.PlaceOrder(ctx, models.OrderRequest{Symbol: "ETH", Side: "buy", Size: 5.4, Type: models.OrderMarket})
		e := New(ext, lit, 15)
		err := e.Verify(ctx, "ETH", 0)
		var verr *VerifyError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, VerifyExtendedNotOpened, verr.Reason)
	})

	t.Run("same_sign", func(t *testing.T) {
		ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
		_, _ = ext.PlaceOrder(ctx, models.OrderRequest{Symbol: "ETH", Side: "buy", Size: 5.4, Type: models.OrderMarket})
		_, _ = lit.PlaceOrder(ctx, models.OrderRequest{Symbol: "ETH", Side: "buy", Size: 5.4, Type: models.OrderMarket})
		e := New(ext, lit, 15)
		err := e.Verify(ctx, "ETH", 0)
		var verr *VerifyError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, VerifySizeMismatch, verr.Reason)
	})

	t.Run("size_mismatch", func(t *testing.T) {
		ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
		_, _ = ext.PlaceOrder(ctx, models.OrderRequest{Symbol: "ETH", Side: "sell", Size: 10, Type: models.OrderMarket})
		_, _ = lit.PlaceOrder(ctx, models.OrderRequest{Symbol: "ETH", Side: "buy", Size: 5, Type: models.OrderMarket})
		e := New(ext, lit, 15)
		err := e.Verify(ctx, "ETH", 0)
		var verr *VerifyError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, VerifySizeMismatch, verr.Reason)
	})

	t.Run("within_tolerance", func(t *testing.T) {
		ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
		// расхождение 10% от большей ноги — в допуске 15%
		_, _ = ext.PlaceOrder(ctx, models.OrderRequest{Symbol: "ETH", Side: "sell", Size: 10, Type: models.OrderMarket})
		_, _ = lit.PlaceOrder(ctx, models.OrderRequest{Symbol: "ETH", Side: "buy", Size: 9, Type: models.OrderMarket})
		e := New(ext, lit, 15)
		require.NoError(t, e.Verify(ctx, "ETH", 0))
	})
}

func TestClose_BothLegs(t *testing.T) {
	ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
	e := New(ext, lit, 15)

	_, err := e.OpenMarket(context.Background(), "ETH", decision, 5.4)
	require.NoError(t, err)

	require.NoError(t, e.Close(context.Background(), "ETH"))

	extPos, _ := ext.GetPosition(context.Background(), "ETH")
	litPos, _ := lit.GetPosition(context.Background(), "ETH")
	assert.Nil(t, extPos)
	assert.Nil(t, litPos)
}

func TestClose_NothingToClose(t *testing.T) {
	e := New(newFakeVenue("extended"), newFakeVenue("lighter"), 15)
	require.NoError(t, e.Close(context.Background(), "ETH"))
}

func TestClose_SameSideRejectionInvertsOnce(t *testing.T) {
	ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
	e := New(ext, lit, 15)

	_, err := e.OpenMarket(context.Background(), "ETH", decision, 5.4)
	require.NoError(t, err)

	ext.sameSideRejects = 1
	require.NoError(t, e.Close(context.Background(), "ETH"))

	// два reduce-only ордера на extended: реджект + инвертированный повтор
	assert.Equal(t, 2, ext.reduceOnlyOrders())
	pos, _ := ext.GetPosition(context.Background(), "ETH")
	assert.Nil(t, pos)
}

func TestOpenLimit_TakerSizedToActualFill(t *testing.T) {
	ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
	e := New(ext, lit, 15)

	legs, err := e.OpenLimit(context.Background(), "ETH", decision, 5.4)
	require.NoError(t, err)
	assert.Equal(t, models.LegFilled, legs[0].Status)
	assert.Equal(t, models.LegAccepted, legs[1].Status)
	// taker-нога строго по фактическому филу maker-ноги
	assert.InDelta(t, legs[0].Size, legs[1].Size, 1e-9)

	litPos, _ := lit.GetPosition(context.Background(), "ETH")
	require.NotNil(t, litPos)
	assert.Equal(t, models.SideLong, litPos.Side)
}

func TestOpenLimit_LighterFailureCompensatesMakerLeg(t *testing.T) {
	ext, lit := newFakeVenue("extended"), newFakeVenue("lighter")
	lit.rejectOpens = true
	e := New(ext, lit, 15)

	_, err := e.OpenLimit(context.Background(), "ETH", decision, 5.4)
	var pfe *models.PartialFillError
	require.ErrorAs(t, err, &pfe)
	assert.True(t, pfe.Compensated)

	pos, _ := ext.GetPosition(context.Background(), "ETH")
	assert.Nil(t, pos)
}

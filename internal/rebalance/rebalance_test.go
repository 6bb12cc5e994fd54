package rebalance

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"dn_farming/internal/models"
	"dn_farming/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init("")
	os.Exit(m.Run())
}

type fakeVenue struct {
	name    string
	address string

	mu           sync.Mutex
	balance      models.Balance
	withdraws    []float64
	deposits     []float64
	balErr       error
	withdrawErrs []error              // очередь ошибок перед успешным withdraw
	depositFn    func(amount float64) // хук: эмулирует кредит на бирже
}

func (f *fakeVenue) Name() string              { return f.name }
func (f *fakeVenue) SettlementAddress() string { return f.address }

func (f *fakeVenue) GetBalance(context.Context) (models.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balErr != nil {
		return models.Balance{}, f.balErr
	}
	return f.balance, nil
}

func (f *fakeVenue) Withdraw(_ context.Context, amount float64, _ string) (models.WithdrawResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.withdrawErrs) > 0 {
		err := f.withdrawErrs[0]
		f.withdrawErrs = f.withdrawErrs[1:]
		return models.WithdrawResult{}, err
	}
	f.withdraws = append(f.withdraws, amount)
	f.balance.Total -= amount
	f.balance.Available -= amount
	return models.WithdrawResult{Status: models.OrderAccepted, WithdrawalID: "wd-1", BridgeFee: 0.5, AmountAfter: amount - 0.5}, nil
}

func (f *fakeVenue) Deposit(_ context.Context, amount float64) (models.DepositResult, error) {
	f.mu.Lock()
	f.deposits = append(f.deposits, amount)
	f.mu.Unlock()
	if f.depositFn != nil {
		f.depositFn(amount)
	}
	return models.DepositResult{Status: models.OrderAccepted, TxHash: "0xdeadbeef"}, nil
}

func (f *fakeVenue) credit(amount float64) {
	f.mu.Lock()
	f.balance.Total += amount
	f.balance.Available += amount
	f.mu.Unlock()
}

type fakeChain struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	waitErr  error
	hops     []string
}

func newFakeChain() *fakeChain {
	return &fakeChain{balances: make(map[string]decimal.Decimal)}
}

func (c *fakeChain) USDCBalance(_ context.Context, address string) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[address], nil
}

func (c *fakeChain) WaitForBalance(_ context.Context, address string, min decimal.Decimal, _, _ time.Duration) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.waitErr != nil {
		return c.balances[address], c.waitErr
	}
	// бридж доехал: на адресе ровно ожидаемое
	c.balances[address] = min
	return min, nil
}

func (c *fakeChain) TransferUSDC(_ context.Context, to string, amount decimal.Decimal) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hops = append(c.hops, to)
	c.balances[to] = c.balances[to].Add(amount)
	return "0xhop", nil
}

func venuePair(extTotal, litTotal float64) (*fakeVenue, *fakeVenue) {
	ext := &fakeVenue{name: "extended", address: "0xoperator", balance: models.Balance{Venue: "extended", Total: extTotal, Available: extTotal}}
	lit := &fakeVenue{name: "lighter", address: "0xoperator", balance: models.Balance{Venue: "lighter", Total: litTotal, Available: litTotal}}
	return ext, lit
}

func TestRebalanceIfNeeded_InsufficientFundsBeforeAnyWithdrawal(t *testing.T) {
	ext, lit := venuePair(80, 90) // всего 170 < 2*100
	s := New(newFakeChain(), 10, 100)

	_, err := s.RebalanceIfNeeded(context.Background(), ext, lit)
	var ife *models.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.InDelta(t, 30, ife.Shortfall(), 1e-9)

	// guard сработал ДО необратимых шагов
	assert.Empty(t, ext.withdraws)
	assert.Empty(t, lit.withdraws)
}

func TestRebalanceIfNeeded_BelowThresholdNoOp(t *testing.T) {
	ext, lit := venuePair(205, 200)
	s := New(newFakeChain(), 10, 100)

	tr, err := s.RebalanceIfNeeded(context.Background(), ext, lit)
	require.NoError(t, err)
	assert.Nil(t, tr)
	assert.Empty(t, ext.withdraws)
	assert.Empty(t, lit.withdraws)
}

func TestRebalanceIfNeeded_VenueBelowMarginTriggersDespiteThreshold(t *testing.T) {
	// дивергенция 90 ниже порога 200, но на lighter не хватает на маржу
	ext, lit := venuePair(150, 60)
	s := New(newFakeChain(), 200, 100)
	lit.depositFn = lit.credit

	tr, err := s.RebalanceIfNeeded(context.Background(), ext, lit)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, "extended", tr.FromVenue)
	assert.InDelta(t, 45, tr.Amount, 1e-9)
}

func TestRebalanceIfNeeded_MovesHalfDivergenceFromRicher(t *testing.T) {
	ext, lit := venuePair(300, 200)
	chain := newFakeChain()
	s := New(chain, 10, 100)

	// кредит на lighter приходит сразу после депозита
	lit.depositFn = lit.credit

	tr, err := s.RebalanceIfNeeded(context.Background(), ext, lit)
	require.NoError(t, err)
	require.NotNil(t, tr)

	assert.Equal(t, "extended", tr.FromVenue)
	assert.Equal(t, "lighter", tr.ToVenue)
	assert.InDelta(t, 50, tr.Amount, 1e-9)
	assert.Equal(t, models.PhaseDone, tr.Phase)
	assert.False(t, tr.InFlight)
	assert.Equal(t, "wd-1", tr.WithdrawalID)
	assert.InDelta(t, 0.5, tr.BridgeFee, 1e-9)

	require.Len(t, ext.withdraws, 1)
	assert.InDelta(t, 50, ext.withdraws[0], 1e-9)
	require.Len(t, lit.deposits, 1)
}

func TestRebalanceIfNeeded_RetriesTransientWithdraw(t *testing.T) {
	ext, lit := venuePair(300, 200)
	// первый вызов падает 502 (прелюдия бриджа), второй проходит
	ext.withdrawErrs = []error{&models.VenueAPIError{Venue: "extended", StatusCode: 502, Msg: "bad gateway"}}
	s := New(newFakeChain(), 10, 100)
	lit.depositFn = lit.credit

	tr, err := s.RebalanceIfNeeded(context.Background(), ext, lit)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, models.PhaseDone, tr.Phase)
	require.Len(t, ext.withdraws, 1)
}

func TestRebalanceIfNeeded_NonTransientWithdrawFailsFast(t *testing.T) {
	ext, lit := venuePair(300, 200)
	ext.withdrawErrs = []error{
		&models.VenueAPIError{Venue: "extended", StatusCode: 400, Msg: "bad request"},
		&models.VenueAPIError{Venue: "extended", StatusCode: 400, Msg: "bad request"},
	}
	s := New(newFakeChain(), 10, 100)

	tr, err := s.RebalanceIfNeeded(context.Background(), ext, lit)
	require.Error(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, models.PhaseFailed, tr.Phase)
	// 400 не ретраим: вторая ошибка из очереди не выбрана
	assert.Len(t, ext.withdrawErrs, 1)
}

func TestRebalanceIfNeeded_BridgeTimeout(t *testing.T) {
	ext, lit := venuePair(300, 200)
	chain := newFakeChain()
	chain.waitErr = errors.New("timeout")
	s := New(chain, 10, 100)

	tr, err := s.RebalanceIfNeeded(context.Background(), ext, lit)
	var bte *models.BridgeTimeoutError
	require.ErrorAs(t, err, &bte)
	require.NotNil(t, tr)
	assert.Equal(t, models.PhaseFailed, tr.Phase)
	assert.NotEmpty(t, tr.FailReason)
	// депозита не было: средства on-chain, не потеряны
	assert.Empty(t, lit.deposits)
}

func TestRebalanceIfNeeded_CreditTimeoutIsPartialSuccess(t *testing.T) {
	ext, lit := venuePair(300, 200)
	s := New(newFakeChain(), 10, 100)

	// кредит на бирже так и не появился
	tr, err := s.RebalanceIfNeeded(contextWithShortDeadline(t), ext, lit)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, models.PhaseDone, tr.Phase)
	assert.True(t, tr.InFlight)
}

// awaitCredit внутри уважает ctx: короткий дедлайн вместо 5 минут.
func contextWithShortDeadline(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestRebalance_SingleFlight(t *testing.T) {
	ext, lit := venuePair(300, 200)
	s := New(newFakeChain(), 10, 100)

	require.True(t, s.acquire())
	_, err := s.RebalanceIfNeeded(context.Background(), ext, lit)
	assert.ErrorIs(t, err, ErrInProgress)

	s.release()
	lit.depositFn = lit.credit
	_, err = s.RebalanceIfNeeded(context.Background(), ext, lit)
	assert.NoError(t, err)
}

func TestConsolidate_MovesAllAvailable(t *testing.T) {
	ext, lit := venuePair(40, 260)
	chain := newFakeChain()
	s := New(chain, 10, 100)
	ext.depositFn = ext.credit

	tr, err := s.Consolidate(context.Background(), lit, ext)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, "lighter", tr.FromVenue)
	assert.InDelta(t, 260, tr.Amount, 1e-9)
	require.Len(t, lit.withdraws, 1)
}

func TestConsolidate_SkipsDust(t *testing.T) {
	ext, lit := venuePair(300, 0.5)
	s := New(newFakeChain(), 10, 100)

	tr, err := s.Consolidate(context.Background(), lit, ext)
	require.NoError(t, err)
	assert.Nil(t, tr)
	assert.Empty(t, lit.withdraws)
}

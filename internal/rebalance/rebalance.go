package rebalance

import (
	"context"
	"errors"
	"sync"
	"time"

	"dn_farming/internal/models"

	"github.com/shopspring/decimal"
)

// Venue — что саге нужно от биржи.
type Venue interface {
	Name() string
	GetBalance(ctx context.Context) (models.Balance, error)
	Withdraw(ctx context.Context, amount float64, address string) (models.WithdrawResult, error)
	Deposit(ctx context.Context, amount float64) (models.DepositResult, error)
	SettlementAddress() string
}

// Chain — расчётный слой (Arbitrum).
type Chain interface {
	USDCBalance(ctx context.Context, address string) (decimal.Decimal, error)
	WaitForBalance(ctx context.Context, address string, min decimal.Decimal, timeout, interval time.Duration) (decimal.Decimal, error)
	TransferUSDC(ctx context.Context, to string, amount decimal.Decimal) (string, error)
}

var ErrInProgress = errors.New("rebalance already in progress")

const (
	// бридж: сколько ждём прихода средств on-chain
	bridgeWaitTimeout  = 10 * time.Minute
	bridgeWaitInterval = 10 * time.Second
	// приходит чуть меньше из-за округлений — принимаем от 99.5%
	bridgeArrivalFactor = 0.995

	// кредит на бирже после депозита
	creditWaitTimeout  = 5 * time.Minute
	creditWaitInterval = 10 * time.Second
	creditArrivalShare = 0.9
)

// Saga гоняет средства между биржами через Arbitrum. Single-flight:
// одновременно не больше одного переноса.
type Saga struct {
	chain Chain

	threshold float64 // дивергенция в USD, 0 = ребаланс после каждого цикла
	margin    float64 // маржа на ногу, для guard'а insufficient funds

	mu         sync.Mutex
	inProgress bool
}

func New(chain Chain, threshold, margin float64) *Saga {
	return &Saga{chain: chain, threshold: threshold, margin: margin}
}

func (s *Saga) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inProgress {
		return false
	}
	s.inProgress = true
	return true
}

func (s *Saga) release() {
	s.mu.Lock()
	s.inProgress = false
	s.mu.Unlock()
}

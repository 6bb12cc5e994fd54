package executor

import (
	"context"
	"sync"
	"time"

	"dn_farming/internal/metrics"
	"dn_farming/internal/models"
)

// VenueClient — что исполнителю нужно от биржи.
type VenueClient interface {
	Name() string
	GetTicker(ctx context.Context, symbol string) (models.Ticker, error)
	GetPosition(ctx context.Context, symbol string) (*models.Position, error)
	PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	GetOrderFill(ctx context.Context, symbol, orderID string) (filled float64, done bool, err error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}

// Executor открывает/закрывает delta-neutral пару extended+lighter.
type Executor struct {
	extended VenueClient
	lighter  VenueClient

	// допуск расхождения ног по notional, %
	sizeTolerancePct float64

	mu          sync.Mutex
	compensated bool // не больше одной компенсации на цикл
}

func New(extended, lighter VenueClient, sizeTolerancePct float64) *Executor {
	return &Executor{
		extended:         extended,
		lighter:          lighter,
		sizeTolerancePct: sizeTolerancePct,
	}
}

// ResetCycle сбрасывает компенсационный guard перед новым циклом.
func (e *Executor) ResetCycle() {
	e.mu.Lock()
	e.compensated = false
	e.mu.Unlock()
}

// SetupLeverage выставляет одинаковое плечо на обеих биржах.
func (e *Executor) SetupLeverage(ctx context.Context, symbol string, leverage int) error {
	if err := e.extended.SetLeverage(ctx, symbol, leverage); err != nil {
		return err
	}
	return e.lighter.SetLeverage(ctx, symbol, leverage)
}

// placeOrder — PlaceOrder с замером латентности сабмита.
func (e *Executor) placeOrder(ctx context.Context, v VenueClient, req models.OrderRequest) (models.OrderResult, error) {
	start := time.Now()
	res, err := v.PlaceOrder(ctx, req)
	metrics.OrderLatency.Observe(time.Since(start).Seconds())
	return res, err
}

func (e *Executor) byName(venue string) VenueClient {
	if venue == e.lighter.Name() {
		return e.lighter
	}
	return e.extended
}

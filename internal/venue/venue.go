package venue

import (
	"context"

	"dn_farming/internal/models"
)

const (
	Extended = "extended"
	Lighter  = "lighter"
)

// Client — единый интерфейс к перп-бирже. Реализации:
// extended_client/service и lighter_client/service.
type Client interface {
	Name() string

	GetTicker(ctx context.Context, symbol string) (models.Ticker, error)
	GetBalance(ctx context.Context) (models.Balance, error)
	GetPositions(ctx context.Context) ([]models.Position, error)
	// GetPosition — позиция по символу или nil, если её нет.
	GetPosition(ctx context.Context, symbol string) (*models.Position, error)

	SetLeverage(ctx context.Context, symbol string, leverage int) error
	PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	// GetOrderFill — сколько реально налилось по ордеру (для limit-режима).
	GetOrderFill(ctx context.Context, symbol, orderID string) (filled float64, done bool, err error)

	// Withdraw выводит USDC на address в Arbitrum. Возвращает сумму после
	// комиссии бриджа.
	Withdraw(ctx context.Context, amount float64, address string) (models.WithdrawResult, error)
	// Deposit заводит USDC с Arbitrum-адреса оператора на биржу.
	Deposit(ctx context.Context, amount float64) (models.DepositResult, error)
	// SettlementAddress — адрес на Arbitrum, куда биржа отдаёт withdraw.
	SettlementAddress() string

	// StartStreams поднимает WebSocket-кеши (стакан/позиции). Блокирует
	// только до первого коннекта, дальше живёт в фоне до отмены ctx.
	StartStreams(ctx context.Context, symbol string) error
}

// PriceFeed — read-through кеш рыночных данных из WebSocket. Значения
// с UpdatedAt, свежесть решает потребитель.
type PriceFeed interface {
	OrderbookTop(symbol string) (models.OrderbookTop, bool)
	MarkPrice(symbol string) (models.MarketStats, bool)
}

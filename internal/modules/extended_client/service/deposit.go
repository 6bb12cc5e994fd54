package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"dn_farming/internal/models"
	"dn_farming/pkg/logger"

	"github.com/shopspring/decimal"
)

// Deposit заводит USDC с Arbitrum на Extended:
// 1-3. конфиг бриджа / котировка ARB -> STRK / commit
// 4.   on-chain depositWithId на контракте бриджа,
//      commitmentId = BigInt("0x" + quoteId) по доке Rhino.fi.
func (c *Client) Deposit(ctx context.Context, amount float64) (models.DepositResult, error) {
	if amount <= 0 {
		return models.DepositResult{}, fmt.Errorf("Deposit: amount must be positive, got %.2f", amount)
	}
	if !c.chain.CanSign() {
		return models.DepositResult{}, fmt.Errorf("Deposit: arbitrum private key not configured")
	}

	arb, err := c.getBridgeChain(ctx, "ARB")
	if err != nil {
		return models.DepositResult{}, fmt.Errorf("Deposit: %w", err)
	}

	quote, err := c.getBridgeQuote(ctx, "ARB", "STRK", amount)
	if err != nil {
		return models.DepositResult{}, fmt.Errorf("Deposit: %w", err)
	}
	logger.Info("extended bridge quote: id=%s fee=$%.2f", quote.ID, quote.Fee)

	if err := c.commitBridgeQuote(ctx, quote.ID); err != nil {
		return models.DepositResult{}, fmt.Errorf("Deposit: %w", err)
	}

	commitmentID, err := commitmentFromQuoteID(quote.ID)
	if err != nil {
		return models.DepositResult{}, fmt.Errorf("Deposit: %w", err)
	}

	txHash, err := c.chain.ApproveAndDepositWithId(ctx, arb.ContractAddress, decimal.NewFromFloat(amount), commitmentID)
	if err != nil {
		return models.DepositResult{}, fmt.Errorf("Deposit: %w", err)
	}

	logger.Info("✅ extended deposit $%.2f отправлен, tx %s (кредит после обработки бриджем)", amount, txHash)
	return models.DepositResult{Status: models.OrderAccepted, TxHash: txHash}, nil
}

// commitmentFromQuoteID: hex-строка котировки -> uint256.
func commitmentFromQuoteID(quoteID string) (*big.Int, error) {
	clean := strings.ReplaceAll(strings.TrimPrefix(quoteID, "0x"), "-", "")
	if id, ok := new(big.Int).SetString(clean, 16); ok {
		return id, nil
	}
	if id, ok := new(big.Int).SetString(quoteID, 10); ok {
		return id, nil
	}
	return nil, fmt.Errorf("quote id %q is not a valid hex or decimal number", quoteID)
}

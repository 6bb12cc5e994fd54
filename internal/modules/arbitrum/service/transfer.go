package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"dn_farming/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

const receiptTimeout = 2 * time.Minute

// sendCall подписывает и отправляет вызов контракта, ждёт receipt.
func (c *Client) sendCall(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (string, error) {
	if c.key == nil {
		return "", fmt.Errorf("sendCall: private key not configured")
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.addr)
	if err != nil {
		return "", fmt.Errorf("sendCall nonce: %w", err)
	}

	tx := c.buildTx(nonce, to, data, gasLimit, c.gas(ctx))

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("sendCall sign: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("sendCall send: %w", err)
	}

	hash := signed.Hash()
	logger.Info("tx отправлена: %s", hash.Hex())

	if err := c.waitMined(ctx, hash); err != nil {
		return hash.Hex(), err
	}
	return hash.Hex(), nil
}

func (c *Client) waitMined(ctx context.Context, hash common.Hash) error {
	deadline := time.Now().Add(receiptTimeout)
	for {
		rcpt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			if rcpt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("tx %s reverted", hash.Hex())
			}
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("tx %s: receipt timeout after %s", hash.Hex(), receiptTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

// TransferUSDC — обычный ERC-20 transfer (перегон между расчётными адресами).
func (c *Client) TransferUSDC(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error) {
	to := common.HexToAddress(toAddress)
	wei := Micros(amount)
	if wei.Sign() <= 0 {
		return "", fmt.Errorf("TransferUSDC: amount must be positive, got %s", amount)
	}

	data := make([]byte, 0, 4+32+32)
	data = append(data, erc20TransferSelector...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(wei.Bytes(), 32)...)

	hash, err := c.sendCall(ctx, c.usdc, data, 100_000)
	if err != nil {
		return hash, fmt.Errorf("TransferUSDC $%s -> %s: %w", amount.StringFixed(2), toAddress, err)
	}
	logger.Info("✅ USDC transfer $%s -> %s: %s", amount.StringFixed(2), toAddress, hash)
	return hash, nil
}

// ApproveAndDepositWithId — депозит через бридж Rhino.fi:
// approve (если не хватает allowance) + depositWithId(token, amount, commitmentId).
func (c *Client) ApproveAndDepositWithId(ctx context.Context, bridgeAddress string, amount decimal.Decimal, commitmentID *big.Int) (string, error) {
	bridge := common.HexToAddress(bridgeAddress)
	wei := Micros(amount)
	if wei.Sign() <= 0 {
		return "", fmt.Errorf("ApproveAndDepositWithId: amount must be positive, got %s", amount)
	}

	bal, err := c.USDCBalance(ctx, c.addr.Hex())
	if err != nil {
		return "", fmt.Errorf("ApproveAndDepositWithId: %w", err)
	}
	if bal.LessThan(amount) {
		return "", fmt.Errorf("ApproveAndDepositWithId: on-chain balance $%s < $%s", bal.StringFixed(2), amount.StringFixed(2))
	}

	allowance, err := c.allowance(ctx, bridge)
	if err != nil {
		return "", fmt.Errorf("ApproveAndDepositWithId: %w", err)
	}
	if allowance.Cmp(wei) < 0 {
		data := make([]byte, 0, 4+32+32)
		data = append(data, erc20ApproveSelector...)
		data = append(data, common.LeftPadBytes(bridge.Bytes(), 32)...)
		data = append(data, common.LeftPadBytes(wei.Bytes(), 32)...)

		if _, err := c.sendCall(ctx, c.usdc, data, 100_000); err != nil {
			return "", fmt.Errorf("ApproveAndDepositWithId approve: %w", err)
		}
		logger.Info("✅ approve бриджа %s на $%s", bridgeAddress, amount.StringFixed(2))
	}

	data := make([]byte, 0, 4+32*3)
	data = append(data, depositWithIdSelector...)
	data = append(data, common.LeftPadBytes(c.usdc.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(wei.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(commitmentID.Bytes(), 32)...)

	hash, err := c.sendCall(ctx, bridge, data, 200_000)
	if err != nil {
		return hash, fmt.Errorf("ApproveAndDepositWithId depositWithId: %w", err)
	}
	logger.Info("✅ depositWithId $%s, tx %s", amount.StringFixed(2), hash)
	return hash, nil
}

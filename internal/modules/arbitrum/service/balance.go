package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"dn_farming/pkg/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// USDCBalance — баланс USDC на address в долларах (6 десятичных).
func (c *Client) USDCBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	owner := common.HexToAddress(address)

	data := make([]byte, 0, 4+32)
	data = append(data, erc20BalanceOfSelector...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.usdc, Data: data}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("USDCBalance balanceOf(%s): %w", owner.Hex(), err)
	}
	if len(out) == 0 {
		return decimal.Zero, fmt.Errorf("USDCBalance: empty result")
	}

	micros := new(big.Int).SetBytes(out)
	return decimal.NewFromBigInt(micros, -usdcDecimals), nil
}

// WaitForBalance ждёт пока на address накопится минимум min USDC.
// Бридж обычно доезжает за пару минут, но даём запас.
func (c *Client) WaitForBalance(ctx context.Context, address string, min decimal.Decimal, timeout, interval time.Duration) (decimal.Decimal, error) {
	deadline := time.Now().Add(timeout)
	var last decimal.Decimal

	for {
		bal, err := c.USDCBalance(ctx, address)
		if err != nil {
			logger.Error("WaitForBalance: %v", err)
		} else {
			last = bal
			if bal.GreaterThanOrEqual(min) {
				return bal, nil
			}
			logger.Info("⏳ ждём бридж: %s имеет $%s, нужно $%s", address, bal.StringFixed(2), min.StringFixed(2))
		}

		if time.Now().After(deadline) {
			return last, fmt.Errorf("WaitForBalance: timeout after %s, have $%s of $%s", timeout, last.StringFixed(2), min.StringFixed(2))
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Allowance — сколько spender может списать у оператора.
func (c *Client) allowance(ctx context.Context, spender common.Address) (*big.Int, error) {
	data := make([]byte, 0, 4+32+32)
	data = append(data, erc20AllowanceSelector...)
	data = append(data, common.LeftPadBytes(c.addr.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(spender.Bytes(), 32)...)

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.usdc, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("allowance(%s): %w", spender.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("allowance: empty result")
	}
	return new(big.Int).SetBytes(out), nil
}

// Micros переводит доллары в раскладку USDC (6 десятичных).
func Micros(amount decimal.Decimal) *big.Int {
	return amount.Shift(usdcDecimals).BigInt()
}

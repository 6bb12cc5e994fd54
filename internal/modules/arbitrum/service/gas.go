package service

import (
	"context"
	"math/big"

	"dn_farming/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type gasParams struct {
	tip     *big.Int // maxPriorityFeePerGas
	feeCap  *big.Int // maxFeePerGas
	gasPx   *big.Int // legacy gasPrice
	dynamic bool
}

// gas — EIP-1559 если нода отдала baseFee, иначе legacy gasPrice.
// feeCap = baseFee*1.2 + tip, tip фиксированный 0.1 gwei (на Arbitrum хватает).
func (c *Client) gas(ctx context.Context) gasParams {
	tip := big.NewInt(100_000_000) // 0.1 gwei

	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err == nil && head.BaseFee != nil {
		feeCap := new(big.Int).Mul(head.BaseFee, big.NewInt(12))
		feeCap.Div(feeCap, big.NewInt(10))
		feeCap.Add(feeCap, tip)
		return gasParams{tip: tip, feeCap: feeCap, dynamic: true}
	}

	gasPx, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		logger.Error("gas: SuggestGasPrice: %v, используем 0.1 gwei", err)
		gasPx = big.NewInt(100_000_000)
	}
	return gasParams{gasPx: gasPx}
}

// buildTx собирает транзакцию вызова контракта под выбранный режим газа.
func (c *Client) buildTx(nonce uint64, to common.Address, data []byte, gasLimit uint64, g gasParams) *types.Transaction {
	if g.dynamic {
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   c.chainID,
			Nonce:     nonce,
			GasTipCap: g.tip,
			GasFeeCap: g.feeCap,
			Gas:       gasLimit,
			To:        &to,
			Value:     big.NewInt(0),
			Data:      data,
		})
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: g.gasPx,
		Gas:      gasLimit,
		To:       &to,
		Value:    big.NewInt(0),
		Data:     data,
	})
}

package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"dn_farming/internal/models"
	"dn_farming/pkg/logger"

	"github.com/bytedance/sonic"
)

const assetIDUSDC = 0

// Withdraw — fast withdraw: L2-transfer в пул с memo-адресом назначения.
// 1. инфо пула (куда переводить, лимит)
// 2. комиссия перевода
// 3. подписанный transfer + POST /fastwithdraw
func (c *Client) Withdraw(ctx context.Context, amount float64, address string) (models.WithdrawResult, error) {
	if amount <= 0 {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw: amount must be positive, got %.2f", amount)
	}

	pool, err := c.fastWithdrawInfo(ctx)
	if err != nil {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw: %w", err)
	}
	if amount > pool.Limit {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw: $%.2f exceeds fast withdraw limit $%.2f", amount, pool.Limit)
	}

	fee, err := c.transferFee(ctx, pool.ToAccount)
	if err != nil {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw: %w", err)
	}
	if amount <= fee {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw: $%.2f does not cover fee $%.2f", amount, fee)
	}
	logger.Info("lighter fast withdraw: пул=%d, fee=$%.2f", pool.ToAccount, fee)

	memo, err := memoFromAddress(address)
	if err != nil {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw: %w", err)
	}

	nonce, err := c.nextNonce(ctx)
	if err != nil {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw: %w", err)
	}

	txInfo := map[string]any{
		"account_index":    c.accountIndex,
		"api_key_index":    0,
		"to_account_index": pool.ToAccount,
		"asset_id":         assetIDUSDC,
		"usdc_amount":      int64(math.Round(amount * 1e6)),
		"fee":              int64(math.Round(fee * 1e6)),
		"memo":             memo,
		"nonce":            nonce,
	}
	payload, err := sonic.Marshal(txInfo)
	if err != nil {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw marshal: %w", err)
	}

	form := url.Values{}
	form.Set("tx_info", string(payload))
	form.Set("signature", c.signTxInfo(string(payload)))
	form.Set("to_address", address)

	data, err := c.doForm(ctx, "/api/v1/fastwithdraw", form, true)
	if err != nil {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw: %w", err)
	}

	var r struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		TxHash  string `json:"tx_hash"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw decode: %w; body=%s", err, string(data))
	}
	if r.Code != 200 {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw rejected: code=%d %s", r.Code, r.Message)
	}

	logger.Info("✅ lighter fast withdraw $%.2f -> %s: %s", amount, address, r.TxHash)
	return models.WithdrawResult{
		Status:       models.OrderAccepted,
		WithdrawalID: r.TxHash,
		BridgeFee:    fee,
		AmountAfter:  amount - fee,
	}, nil
}

type fastWithdrawPool struct {
	ToAccount int
	Limit     float64
}

func (c *Client) fastWithdrawInfo(ctx context.Context) (fastWithdrawPool, error) {
	data, err := c.doGet(ctx, "/api/v1/fastwithdraw/info?account_index="+strconv.Itoa(c.accountIndex), true)
	if err != nil {
		return fastWithdrawPool{}, fmt.Errorf("fastWithdrawInfo: %w", err)
	}

	var r struct {
		Code           int     `json:"code"`
		Message        string  `json:"message"`
		ToAccountIndex int     `json:"to_account_index"`
		WithdrawLimit  float64 `json:"withdraw_limit"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return fastWithdrawPool{}, fmt.Errorf("fastWithdrawInfo decode: %w; body=%s", err, string(data))
	}
	if r.Code != 200 {
		return fastWithdrawPool{}, fmt.Errorf("fastWithdrawInfo code=%d %s", r.Code, r.Message)
	}
	return fastWithdrawPool{ToAccount: r.ToAccountIndex, Limit: r.WithdrawLimit}, nil
}

func (c *Client) transferFee(ctx context.Context, toAccount int) (float64, error) {
	path := "/api/v1/transferFeeInfo?account_index=" + strconv.Itoa(c.accountIndex) +
		"&to_account_index=" + strconv.Itoa(toAccount)
	data, err := c.doGet(ctx, path, true)
	if err != nil {
		return 0, fmt.Errorf("transferFee: %w", err)
	}

	var r struct {
		Code            int   `json:"code"`
		TransferFeeUsdc int64 `json:"transfer_fee_usdc"` // в микро-USDC
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return 0, fmt.Errorf("transferFee decode: %w; body=%s", err, string(data))
	}
	if r.Code != 200 {
		return 0, fmt.Errorf("transferFee code=%d RAW=%s", r.Code, string(data))
	}
	return float64(r.TransferFeeUsdc) / 1e6, nil
}

// memoFromAddress: 20 байт адреса + 12 нулевых = 32 байта hex.
func memoFromAddress(address string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(address), "0x"))
	if err != nil || len(raw) != 20 {
		return "", fmt.Errorf("invalid destination address %q", address)
	}
	memo := make([]byte, 32)
	copy(memo, raw)
	return hex.EncodeToString(memo), nil
}

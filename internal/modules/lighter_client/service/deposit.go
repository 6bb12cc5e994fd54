package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"dn_farming/internal/models"
	"dn_farming/pkg/logger"

	"github.com/shopspring/decimal"
)

// Deposit — внешний депозит через intent address: просим адрес у L2
// и шлём туда обычный USDC transfer с Arbitrum.
func (c *Client) Deposit(ctx context.Context, amount float64) (models.DepositResult, error) {
	if amount <= 0 {
		return models.DepositResult{}, fmt.Errorf("Deposit: amount must be positive, got %.2f", amount)
	}
	if !c.chain.CanSign() {
		return models.DepositResult{}, fmt.Errorf("Deposit: arbitrum private key not configured")
	}

	intent, err := c.createIntentAddress(ctx)
	if err != nil {
		return models.DepositResult{}, fmt.Errorf("Deposit: %w", err)
	}
	logger.Info("lighter intent address: %s", intent)

	txHash, err := c.chain.TransferUSDC(ctx, intent, decimal.NewFromFloat(amount))
	if err != nil {
		return models.DepositResult{}, fmt.Errorf("Deposit: %w", err)
	}

	logger.Info("✅ lighter deposit $%.2f отправлен, tx %s (кредит после обработки бриджем)", amount, txHash)
	return models.DepositResult{Status: models.OrderAccepted, TxHash: txHash}, nil
}

func (c *Client) createIntentAddress(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("chain_id", strconv.FormatInt(c.cfg.Arbitrum.ChainID, 10))
	form.Set("from_addr", c.chain.Address())
	form.Set("amount", "0")
	form.Set("is_external_deposit", "true")

	data, err := c.doForm(ctx, "/api/v1/createIntentAddress", form, false)
	if err != nil {
		return "", fmt.Errorf("createIntentAddress: %w", err)
	}

	var r struct {
		Code          int    `json:"code"`
		Message       string `json:"message"`
		IntentAddress string `json:"intent_address"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return "", fmt.Errorf("createIntentAddress decode: %w; body=%s", err, string(data))
	}
	if r.Code != 200 || !strings.HasPrefix(r.IntentAddress, "0x") {
		return "", fmt.Errorf("createIntentAddress code=%d %s RAW=%s", r.Code, r.Message, string(data))
	}
	return r.IntentAddress, nil
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"dn_farming/internal/models"
	"dn_farming/pkg/logger"

	"github.com/bytedance/sonic"
)

// Withdraw выводит USDC со Starknet на address в Arbitrum через бридж:
// 1. конфиг бриджа (проверяем что ARB поддержан)
// 2. котировка STRK -> ARB
// 3. commit котировки
// 4. сам withdrawal с quote_id
func (c *Client) Withdraw(ctx context.Context, amount float64, address string) (models.WithdrawResult, error) {
	if amount <= 0 {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw: amount must be positive, got %.2f", amount)
	}

	if _, err := c.getBridgeChain(ctx, "ARB"); err != nil {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw: %w", err)
	}

	quote, err := c.getBridgeQuote(ctx, "STRK", "ARB", amount)
	if err != nil {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw: %w", err)
	}
	logger.Info("extended bridge quote: id=%s fee=$%.2f, к получению $%.2f", quote.ID, quote.Fee, amount-quote.Fee)

	if err := c.commitBridgeQuote(ctx, quote.ID); err != nil {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw: %w", err)
	}

	body := map[string]string{
		"amount":  strconv.FormatFloat(amount, 'f', 2, 64),
		"address": address,
		"quoteId": quote.ID,
	}
	payload, err := sonic.Marshal(body)
	if err != nil {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw marshal: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/user/withdrawal", bytes.NewReader(payload))
	if err != nil {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw: %w", err)
	}

	var r struct {
		Status string `json:"status"`
		Data   string `json:"data"` // withdrawal id
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw decode: %w; body=%s", err, string(data))
	}
	if r.Status != "OK" || r.Data == "" {
		return models.WithdrawResult{}, fmt.Errorf("Withdraw rejected RAW=%s", string(data))
	}

	logger.Info("✅ extended withdrawal отправлен: id=%s $%.2f -> %s", r.Data, amount, address)
	return models.WithdrawResult{
		Status:       models.OrderAccepted,
		WithdrawalID: r.Data,
		BridgeFee:    quote.Fee,
		AmountAfter:  amount - quote.Fee,
	}, nil
}

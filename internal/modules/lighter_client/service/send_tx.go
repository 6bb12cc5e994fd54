package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"
)

// Типы L2-транзакций Lighter.
const (
	txTypeTransfer       = 12
	txTypeCreateOrder    = 14
	txTypeCancelOrder    = 15
	txTypeUpdateLeverage = 22
)

// nextNonce — монотонный nonce для L2-транзакций.
func (c *Client) nextNonce(ctx context.Context) (int64, error) {
	data, err := c.doGet(ctx, "/api/v1/nextNonce?account_index="+strconv.Itoa(c.accountIndex)+"&api_key_index=0", false)
	if err != nil {
		return 0, fmt.Errorf("nextNonce: %w", err)
	}

	var r struct {
		Code  int   `json:"code"`
		Nonce int64 `json:"nonce"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return 0, fmt.Errorf("nextNonce decode: %w; body=%s", err, string(data))
	}
	if r.Code != 200 {
		return 0, fmt.Errorf("nextNonce code=%d RAW=%s", r.Code, string(data))
	}
	return r.Nonce, nil
}

type sendTxResult struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TxHash  string `json:"tx_hash"`
}

// sendTx — подписываем tx_info и шлём form-encoded, как ожидает L2.
func (c *Client) sendTx(ctx context.Context, txType int, txInfo map[string]any) (sendTxResult, error) {
	nonce, err := c.nextNonce(ctx)
	if err != nil {
		return sendTxResult{}, err
	}
	txInfo["account_index"] = c.accountIndex
	txInfo["api_key_index"] = 0
	txInfo["nonce"] = nonce

	payload, err := sonic.Marshal(txInfo)
	if err != nil {
		return sendTxResult{}, fmt.Errorf("sendTx marshal: %w", err)
	}

	form := url.Values{}
	form.Set("tx_type", strconv.Itoa(txType))
	form.Set("tx_info", string(payload))
	form.Set("signature", c.signTxInfo(string(payload)))

	data, err := c.doForm(ctx, "/api/v1/sendTx", form, true)
	if err != nil {
		return sendTxResult{}, fmt.Errorf("sendTx: %w", err)
	}

	var r sendTxResult
	if err := json.Unmarshal(data, &r); err != nil {
		return sendTxResult{}, fmt.Errorf("sendTx decode: %w; body=%s", err, string(data))
	}
	return r, nil
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
)

// bridgeChain — одна цепочка из конфига бриджа Rhino.fi.
type bridgeChain struct {
	Chain           string `json:"chain"` // "ARB", "ETH", ...
	ContractAddress string `json:"contractAddress"`
}

type bridgeQuote struct {
	ID  string
	Fee float64
}

// getBridgeChain — шаг 1: конфиг бриджа, ищем нужную цепочку.
func (c *Client) getBridgeChain(ctx context.Context, chain string) (bridgeChain, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/user/bridge/config", nil)
	if err != nil {
		return bridgeChain{}, fmt.Errorf("getBridgeChain: %w", err)
	}

	var r struct {
		Status string `json:"status"`
		Data   struct {
			Chains []bridgeChain `json:"chains"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return bridgeChain{}, fmt.Errorf("getBridgeChain decode: %w; body=%s", err, string(data))
	}

	for _, ch := range r.Data.Chains {
		if ch.Chain == chain {
			return ch, nil
		}
	}
	return bridgeChain{}, fmt.Errorf("getBridgeChain: chain %s not found in bridge config", chain)
}

// getBridgeQuote — шаг 2: котировка на перенос chainIn -> chainOut.
func (c *Client) getBridgeQuote(ctx context.Context, chainIn, chainOut string, amount float64) (bridgeQuote, error) {
	body := map[string]string{
		"chainIn":  chainIn,
		"chainOut": chainOut,
		"amount":   strconv.FormatFloat(amount, 'f', 2, 64),
	}
	payload, err := sonic.Marshal(body)
	if err != nil {
		return bridgeQuote{}, fmt.Errorf("getBridgeQuote marshal: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/user/bridge/quote", bytes.NewReader(payload))
	if err != nil {
		return bridgeQuote{}, fmt.Errorf("getBridgeQuote: %w", err)
	}

	var r struct {
		Status string `json:"status"`
		Data   struct {
			ID  string `json:"id"`
			Fee string `json:"fee"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return bridgeQuote{}, fmt.Errorf("getBridgeQuote decode: %w; body=%s", err, string(data))
	}
	if r.Data.ID == "" {
		return bridgeQuote{}, fmt.Errorf("getBridgeQuote: empty quote id RAW=%s", string(data))
	}

	fee, _ := strconv.ParseFloat(r.Data.Fee, 64)
	return bridgeQuote{ID: r.Data.ID, Fee: fee}, nil
}

// commitBridgeQuote — шаг 3: подтверждаем котировку.
func (c *Client) commitBridgeQuote(ctx context.Context, quoteID string) error {
	if _, err := c.doRequest(ctx, http.MethodPost, "/user/bridge/quote/"+quoteID+"/commit", nil); err != nil {
		return fmt.Errorf("commitBridgeQuote %s: %w", quoteID, err)
	}
	return nil
}

package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
)

func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	body := map[string]string{
		"market":   marketName(symbol),
		"leverage": strconv.Itoa(leverage),
	}

	payload, err := sonic.Marshal(body)
	if err != nil {
		return fmt.Errorf("SetLeverage marshal: %w", err)
	}

	if _, err := c.doRequest(ctx, http.MethodPatch, "/user/leverage", bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("SetLeverage %s x%d: %w", symbol, leverage, err)
	}
	return nil
}

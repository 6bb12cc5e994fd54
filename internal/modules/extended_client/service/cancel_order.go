package service

import (
	"context"
	"fmt"
	"net/http"
)

func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/user/order/"+orderID, nil)
	if err != nil {
		return fmt.Errorf("CancelOrder %s: %w", orderID, err)
	}
	return nil
}

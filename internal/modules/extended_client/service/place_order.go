package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"dn_farming/internal/models"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

func (c *Client) PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	if req.Size <= 0 {
		return models.OrderResult{}, fmt.Errorf("PlaceOrder: size <= 0")
	}

	body := map[string]any{
		"id":         uuid.NewString(),
		"market":     marketName(req.Symbol),
		"type":       string(req.Type),
		"side":       req.Side, // "buy"/"sell"
		"qty":        strconv.FormatFloat(req.Size, 'f', -1, 64),
		"reduceOnly": req.ReduceOnly,
	}
	if req.Type == models.OrderLimit {
		body["price"] = strconv.FormatFloat(req.Price, 'f', -1, 64)
		body["timeInForce"] = "GTT"
		body["postOnly"] = req.PostOnly
	} else {
		body["timeInForce"] = "IOC"
	}

	payload, err := sonic.Marshal(body)
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("PlaceOrder marshal: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/user/order", bytes.NewReader(payload))
	if err != nil {
		// реджект приходит как 4xx с телом — вытаскиваем причину
		var apiErr *models.VenueAPIError
		if errors.As(err, &apiErr) && apiErr.StatusCode/100 == 4 {
			return models.OrderResult{Status: models.OrderRejected, Reason: apiErr.Msg}, nil
		}
		// дедлайн сабмита: судьба ордера неизвестна, наружу — Timeout
		if errors.Is(err, context.DeadlineExceeded) {
			return models.OrderResult{Status: models.OrderTimeout, Reason: "submit timed out"}, nil
		}
		return models.OrderResult{}, fmt.Errorf("PlaceOrder: %w", err)
	}

	var r struct {
		Status string `json:"status"`
		Data   struct {
			ID string `json:"id"`
		} `json:"data"`
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return models.OrderResult{}, fmt.Errorf("PlaceOrder decode: %w; body=%s", err, string(data))
	}

	if r.Status != "OK" {
		return models.OrderResult{
			Status: models.OrderRejected,
			Reason: fmt.Sprintf("code=%d %s", r.Error.Code, r.Error.Message),
		}, nil
	}
	if r.Data.ID == "" {
		return models.OrderResult{}, fmt.Errorf("PlaceOrder: empty order id RAW=%s", string(data))
	}

	return models.OrderResult{OrderID: r.Data.ID, Status: models.OrderAccepted}, nil
}

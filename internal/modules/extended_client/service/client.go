package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"dn_farming/internal/models"
	"dn_farming/internal/modules/config"

	arbservice "dn_farming/internal/modules/arbitrum/service"

	"github.com/gorilla/websocket"
)

// Client — REST + WS клиент Extended (перпы на Starknet, бридж Rhino.fi).
type Client struct {
	cfg   *config.Config
	chain *arbservice.Client

	http     *http.Client
	wsDialer *websocket.Dialer

	baseURL  string
	wsURL    string
	apiKey   string
	starkKey string
	vault    string

	obMu sync.RWMutex
	ob   map[string]models.OrderbookTop
}

func NewClient(cfg *config.Config, chain *arbservice.Client) *Client {
	return &Client{
		cfg:      cfg,
		chain:    chain,
		http:     &http.Client{Timeout: 10 * time.Second},
		wsDialer: &websocket.Dialer{},
		baseURL:  cfg.Extended.BaseURL,
		wsURL:    cfg.Extended.WsURL,
		apiKey:   cfg.Extended.APIKey,
		starkKey: cfg.Extended.StarkKey,
		vault:    cfg.Extended.Vault,
		ob:       make(map[string]models.OrderbookTop),
	}
}

func (c *Client) Name() string { return "extended" }

// SettlementAddress — withdraw с Extended приезжает на кошелёк оператора.
func (c *Client) SettlementAddress() string { return c.chain.Address() }

// marketName: "ETH" -> "ETH-USD".
func marketName(symbol string) string { return symbol + "-USD" }

// doRequest — общий REST-вызов с авторизацией и нормализацией ошибок.
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("extended new request: %w", err)
	}

	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "dn-farming/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extended do: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode/100 != 2 {
		return nil, &models.VenueAPIError{
			Venue:      "extended",
			StatusCode: resp.StatusCode,
			Msg:        string(data),
		}
	}

	return data, nil
}

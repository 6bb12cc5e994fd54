package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"dn_farming/internal/models"
	"dn_farming/internal/modules/config"

	arbservice "dn_farming/internal/modules/arbitrum/service"

	"github.com/gorilla/websocket"
)

// Client — REST + WS клиент Lighter. Торговые операции идут через
// sendTx с подписанным tx_info, рыночные данные — из WS-кеша.
type Client struct {
	cfg   *config.Config
	chain *arbservice.Client

	http     *http.Client
	wsDialer *websocket.Dialer

	baseURL      string
	wsURL        string
	apiKey       string
	accountIndex int

	mktMu   sync.RWMutex
	markets map[string]marketMeta // symbol -> meta

	statsMu sync.RWMutex
	stats   map[string]models.MarketStats

	obMu sync.RWMutex
	ob   map[string]models.OrderbookTop

	posMu     sync.RWMutex
	positions map[string]models.Position
	posAt     time.Time
}

type marketMeta struct {
	MarketID      int
	SizeDecimals  int
	PriceDecimals int
}

func NewClient(cfg *config.Config, chain *arbservice.Client) *Client {
	return &Client{
		cfg:          cfg,
		chain:        chain,
		http:         &http.Client{Timeout: 10 * time.Second},
		wsDialer:     &websocket.Dialer{},
		baseURL:      cfg.Lighter.BaseURL,
		wsURL:        cfg.Lighter.WsURL,
		apiKey:       cfg.Lighter.APIKey,
		accountIndex: cfg.Lighter.AccountIndex,
		markets:      make(map[string]marketMeta),
		stats:        make(map[string]models.MarketStats),
		ob:           make(map[string]models.OrderbookTop),
		positions:    make(map[string]models.Position),
	}
}

func (c *Client) Name() string { return "lighter" }

// SettlementAddress — fast withdraw с Lighter едет на кошелёк оператора.
func (c *Client) SettlementAddress() string { return c.chain.Address() }

// doGet — обычный GET с нормализацией ошибок.
func (c *Client) doGet(ctx context.Context, path string, auth bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("lighter new request: %w", err)
	}
	if auth {
		req.Header.Set("Authorization", c.authToken())
	}
	return c.do(req)
}

// doForm — POST application/x-www-form-urlencoded (так принимает sendTx).
func (c *Client) doForm(ctx context.Context, path string, form url.Values, auth bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("lighter new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if auth {
		req.Header.Set("Authorization", c.authToken())
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lighter do: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode/100 != 2 {
		return nil, &models.VenueAPIError{
			Venue:      "lighter",
			StatusCode: resp.StatusCode,
			Msg:        string(data),
		}
	}
	return data, nil
}

package service

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"dn_farming/internal/modules/config"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const usdcDecimals = 6

var (
	erc20BalanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	erc20AllowanceSelector = crypto.Keccak256([]byte("allowance(address,address)"))[:4]
	erc20TransferSelector  = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
	erc20ApproveSelector   = crypto.Keccak256([]byte("approve(address,uint256)"))[:4]
	// depositWithId(address token, uint256 amount, uint256 commitmentId) — бридж Rhino.fi
	depositWithIdSelector = crypto.Keccak256([]byte("depositWithId(address,uint256,uint256)"))[:4]
)

type Client struct {
	eth     *ethclient.Client
	http    *http.Client
	chainID *big.Int
	usdc    common.Address

	key  *ecdsa.PrivateKey
	addr common.Address
}

func NewClient(cfg *config.Config) (*Client, error) {
	eth, err := ethclient.Dial(cfg.Arbitrum.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("arbitrum dial %s: %w", cfg.Arbitrum.RPCURL, err)
	}

	c := &Client{
		eth:     eth,
		http:    &http.Client{Timeout: 10 * time.Second},
		chainID: big.NewInt(cfg.Arbitrum.ChainID),
		usdc:    common.HexToAddress(cfg.Arbitrum.USDC),
	}

	if cfg.Arbitrum.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.Arbitrum.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("arbitrum parse private key: %w", err)
		}
		c.key = key
		c.addr = crypto.PubkeyToAddress(key.PublicKey)
	}

	return c, nil
}

// Address — адрес кошелька оператора на Arbitrum.
func (c *Client) Address() string {
	return c.addr.Hex()
}

func (c *Client) CanSign() bool { return c.key != nil }

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"

	extendedAPIKeyENV     = "EXTENDED_API_KEY"
	extendedStarkKeyENV   = "EXTENDED_STARK_PRIVATE_KEY"
	extendedVaultENV      = "EXTENDED_VAULT"
	lighterAPIKeyENV      = "LIGHTER_API_KEY_PRIVATE_KEY"
	lighterAccountIdxENV  = "LIGHTER_ACCOUNT_INDEX"
	arbitrumPrivateKeyENV = "ARBITRUM_PRIVATE_KEY"
)

// Config ...
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB      string `yaml:"db_dsn"`
	Service struct {
		Host       string `yaml:"host"`
		PublicPort int    `yaml:"public_port"`
		AdminPort  int    `yaml:"admin_port"`
	} `yaml:"service"`
	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// Торговля
	Symbol   string `yaml:"symbol"`   // напр. "ETH"
	Leverage int    `yaml:"leverage"` // одинаковое на обеих биржах
	// Маржа на ОДНУ ногу, USD. Полный notional ноги = margin * leverage * safety_factor.
	Margin    float64 `yaml:"margin"`
	OrderMode string  `yaml:"order_mode"` // market | limit

	// Закрытие
	MinimalPnl    float64       `yaml:"minimal_pnl"`     // порог для positive_pnl, USD
	MinDuration   time.Duration `yaml:"min_duration"`    // нижняя граница удержания
	MaxDuration   time.Duration `yaml:"max_duration"`    // верхняя граница удержания
	PnlCheckDelay time.Duration `yaml:"pnl_check_delay"` // окно ожидания восстановления PnL

	// Цикл
	NumCycles          int           `yaml:"num_cycles"`
	DelayBetweenCycles time.Duration `yaml:"delay_between_cycles"`

	// Ребаланс
	RebalanceThreshold  float64 `yaml:"rebalance_threshold"` // дивергенция в USD, 0 = после каждого цикла
	WithdrawToMainVenue bool    `yaml:"withdraw_to_main_venue"`
	MainVenue           string  `yaml:"main_venue"`

	// Сайзинг
	SafetyFactor     float64 `yaml:"safety_factor"`      // запас от ликвидации, дефолт 0.90
	SizeTolerancePct float64 `yaml:"size_tolerance_pct"` // допуск расхождения ног, дефолт 15

	Extended struct {
		BaseURL  string `yaml:"base_url"`
		WsURL    string `yaml:"ws_url"`
		APIKey   string `yaml:"-"`
		StarkKey string `yaml:"-"`
		Vault    string `yaml:"-"`
	} `yaml:"extended"`
	Lighter struct {
		BaseURL      string `yaml:"base_url"`
		WsURL        string `yaml:"ws_url"`
		APIKey       string `yaml:"-"`
		AccountIndex int    `yaml:"-"`
	} `yaml:"lighter"`
	Arbitrum struct {
		RPCURL     string `yaml:"rpc_url"`
		USDC       string `yaml:"usdc_address"`
		ChainID    int64  `yaml:"chain_id"`
		PrivateKey string `yaml:"-"`
	} `yaml:"arbitrum"`
}

func NewConfig() (*Config, error) {

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		Symbol:    getenvDefault("SYMBOL", "ETH"),
		Leverage:  intFromEnv("LEVERAGE", 3),
		Margin:    floatFromEnv("MARGIN", 100),
		OrderMode: getenvDefault("ORDER_MODE", "limit"),

		MinimalPnl:    floatFromEnv("MINIMAL_PNL", 0),
		MinDuration:   durationFromEnv("MIN_DURATION", "30m"),
		MaxDuration:   durationFromEnv("MAX_DURATION", "120m"),
		PnlCheckDelay: durationFromEnv("PNL_CHECK_DELAY", "5m"),

		NumCycles:          intFromEnv("NUM_CYCLES", 1),
		DelayBetweenCycles: durationFromEnv("DELAY_BETWEEN_CYCLES", "60s"),

		RebalanceThreshold: floatFromEnv("REBALANCE_THRESHOLD", 0),
		MainVenue:          getenvDefault("MAIN_VENUE", "extended"),

		SafetyFactor:     floatFromEnv("SAFETY_FACTOR", 0.90),
		SizeTolerancePct: floatFromEnv("SIZE_TOLERANCE_PCT", 15),
	}
	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	token := os.Getenv(tokenTelegramENV)
	if token != "" {
		config.Telegram.Token = token
	}

	dsn := os.Getenv(databaseDSN)
	if dsn != "" {
		config.DB = dsn
	}

	// Ключи только из env, в yaml им не место.
	config.Extended.APIKey = os.Getenv(extendedAPIKeyENV)
	config.Extended.StarkKey = os.Getenv(extendedStarkKeyENV)
	config.Extended.Vault = os.Getenv(extendedVaultENV)
	config.Lighter.APIKey = os.Getenv(lighterAPIKeyENV)
	config.Lighter.AccountIndex = intFromEnv(lighterAccountIdxENV, 0)
	config.Arbitrum.PrivateKey = os.Getenv(arbitrumPrivateKeyENV)

	if config.Extended.BaseURL == "" {
		config.Extended.BaseURL = "https://api.extended.exchange/api/v1"
	}
	if config.Extended.WsURL == "" {
		config.Extended.WsURL = "wss://api.extended.exchange/stream.extended.exchange/v1"
	}
	if config.Lighter.BaseURL == "" {
		config.Lighter.BaseURL = "https://mainnet.zklighter.elliot.ai"
	}
	if config.Lighter.WsURL == "" {
		config.Lighter.WsURL = "wss://mainnet.zklighter.elliot.ai/stream"
	}
	if config.Arbitrum.RPCURL == "" {
		config.Arbitrum.RPCURL = "https://arb1.arbitrum.io/rpc"
	}
	if config.Arbitrum.USDC == "" {
		config.Arbitrum.USDC = "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
	}
	if config.Arbitrum.ChainID == 0 {
		config.Arbitrum.ChainID = 42161
	}

	if err := config.validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	return &config, nil
}

// validate — фатально на старте, а не посреди цикла с открытыми позициями.
func (c *Config) validate() error {
	if c.Leverage < 1 {
		return fmt.Errorf("leverage must be >= 1, got %d", c.Leverage)
	}
	if c.Margin <= 0 {
		return fmt.Errorf("margin must be > 0, got %.2f", c.Margin)
	}
	if c.OrderMode != "market" && c.OrderMode != "limit" {
		return fmt.Errorf("order_mode must be market or limit, got %q", c.OrderMode)
	}
	if c.MaxDuration < c.MinDuration {
		return fmt.Errorf("max_duration %s < min_duration %s", c.MaxDuration, c.MinDuration)
	}
	if c.NumCycles < 1 {
		return fmt.Errorf("num_cycles must be >= 1, got %d", c.NumCycles)
	}
	if c.DelayBetweenCycles < 0 {
		return fmt.Errorf("delay_between_cycles must be >= 0")
	}
	if c.RebalanceThreshold < 0 {
		return fmt.Errorf("rebalance_threshold must be >= 0")
	}
	if c.PnlCheckDelay < 0 {
		return fmt.Errorf("pnl_check_delay must be >= 0")
	}
	if c.SafetyFactor <= 0 || c.SafetyFactor > 1 {
		return fmt.Errorf("safety_factor must be in (0, 1], got %.2f", c.SafetyFactor)
	}
	if c.WithdrawToMainVenue && c.MainVenue != "extended" && c.MainVenue != "lighter" {
		return fmt.Errorf("main_venue must be extended or lighter, got %q", c.MainVenue)
	}
	return nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}

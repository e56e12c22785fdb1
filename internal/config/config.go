package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SecondExchangeNone      = "none"
	SecondExchangeBinance   = "binance"
	SecondExchangeCoinGecko = "coingecko"
	SecondExchangeSimulated = "simulated"
)

type Config struct {
	Log      LoggingConfig  `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Bitget   BitgetConfig   `yaml:"bitget"`
	Second   SecondConfig   `yaml:"second_exchange"`
	Trade    TradeConfig    `yaml:"trade"`
	State    StateConfig    `yaml:"state"`
	Feed     FeedConfig     `yaml:"feed"`
	Recorder RecorderConfig `yaml:"recorder"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type BitgetConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	ReceiveWindowMS int64         `yaml:"receive_window_ms"`
	TakerFeePercent float64       `yaml:"taker_fee_percent"`
}

// SecondConfig selects the second price source. "simulated" mirrors the
// primary price with a small jitter and never receives orders.
type SecondConfig struct {
	Name            string        `yaml:"name"`
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	TakerFeePercent float64       `yaml:"taker_fee_percent"`
}

type TradeConfig struct {
	TokenSymbol            string           `yaml:"token_symbol"`
	QuoteAsset             string           `yaml:"quote_asset"`
	MinNotionalUSDT        float64          `yaml:"min_notional_usdt"`
	ProfitThresholdPercent float64          `yaml:"profit_threshold_percent"`
	SizeDecimals           int32            `yaml:"size_decimals"`
	SizeDecimalOverrides   map[string]int32 `yaml:"size_decimal_overrides"`
	PollInterval           time.Duration    `yaml:"poll_interval"`
	PriceFreshness         time.Duration    `yaml:"price_freshness"`
	AutoExecute            bool             `yaml:"auto_execute"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type FeedConfig struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

type RecorderConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Bitget.BaseURL == "" {
		cfg.Bitget.BaseURL = "https://api.bitget.com"
	}
	if cfg.Bitget.Timeout == 0 {
		cfg.Bitget.Timeout = 10 * time.Second
	}
	if cfg.Bitget.ReceiveWindowMS == 0 {
		cfg.Bitget.ReceiveWindowMS = 5000
	}
	if cfg.Bitget.TakerFeePercent == 0 {
		cfg.Bitget.TakerFeePercent = 0.1
	}
	if cfg.Second.Name == "" {
		cfg.Second.Name = SecondExchangeSimulated
	}
	if cfg.Second.BaseURL == "" {
		switch cfg.Second.Name {
		case SecondExchangeCoinGecko:
			cfg.Second.BaseURL = "https://api.coingecko.com/api/v3"
		default:
			cfg.Second.BaseURL = "https://api.binance.com"
		}
	}
	if cfg.Second.Timeout == 0 {
		cfg.Second.Timeout = 10 * time.Second
	}
	if cfg.Second.TakerFeePercent == 0 {
		cfg.Second.TakerFeePercent = 0.1
	}
	if cfg.Trade.TokenSymbol == "" {
		cfg.Trade.TokenSymbol = "eth"
	}
	if cfg.Trade.QuoteAsset == "" {
		cfg.Trade.QuoteAsset = "USDT"
	}
	if cfg.Trade.MinNotionalUSDT == 0 {
		cfg.Trade.MinNotionalUSDT = 10
	}
	if cfg.Trade.ProfitThresholdPercent == 0 {
		cfg.Trade.ProfitThresholdPercent = 0.05
	}
	if cfg.Trade.SizeDecimals == 0 {
		cfg.Trade.SizeDecimals = 6
	}
	if cfg.Trade.PollInterval == 0 {
		cfg.Trade.PollInterval = 30 * time.Second
	}
	if cfg.Trade.PriceFreshness == 0 {
		cfg.Trade.PriceFreshness = 15 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/arbitage.db"
	}
	if cfg.Feed.URL == "" {
		cfg.Feed.URL = "wss://ws.bitget.com/v2/ws/public"
	}
	if cfg.Feed.ReconnectDelay == 0 {
		cfg.Feed.ReconnectDelay = 3 * time.Second
	}
	if cfg.Feed.PingInterval == 0 {
		cfg.Feed.PingInterval = 25 * time.Second
	}
	if cfg.Recorder.Schema == "" {
		cfg.Recorder.Schema = "public"
	}
	if cfg.Recorder.QueueSize == 0 {
		cfg.Recorder.QueueSize = 256
	}
}

func validate(cfg *Config) error {
	switch cfg.Second.Name {
	case SecondExchangeNone, SecondExchangeBinance, SecondExchangeCoinGecko, SecondExchangeSimulated:
	default:
		return fmt.Errorf("second_exchange.name %q is not one of none, binance, coingecko, simulated", cfg.Second.Name)
	}
	if cfg.Trade.MinNotionalUSDT <= 0 {
		return errors.New("trade.min_notional_usdt must be > 0")
	}
	if cfg.Trade.ProfitThresholdPercent < 0 {
		return errors.New("trade.profit_threshold_percent must be >= 0")
	}
	if cfg.Bitget.TakerFeePercent < 0 || cfg.Second.TakerFeePercent < 0 {
		return errors.New("taker fee percentages must be >= 0")
	}
	if cfg.Trade.SizeDecimals < 0 {
		return errors.New("trade.size_decimals must be >= 0")
	}
	if cfg.Recorder.Enabled && cfg.Recorder.DSN == "" {
		return errors.New("recorder.dsn is required when recorder is enabled")
	}
	return nil
}

package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
	"github.com/shopspring/decimal"
)

type Config struct {
	Payment PaymentConfig `koanf:"payment"`
	Server  ServerConfig  `koanf:"server"`
	Ledger  LedgerConfig  `koanf:"ledger"`
	Store   StoreConfig   `koanf:"store"`
	Logger  LoggerConfig  `koanf:"logger"`
}

// PaymentConfig is the settlement surface copied into every issued challenge.
// It is read-only after Load.
type PaymentConfig struct {
	Address       string        `koanf:"address" validate:"required"`
	TokenMint     string        `koanf:"token_mint" validate:"required"`
	TokenDecimals int32         `koanf:"token_decimals" validate:"gte=0,lte=18"`
	Network       string        `koanf:"network" validate:"required"`
	DefaultAmount string        `koanf:"default_amount" validate:"required"`
	Timeout       time.Duration `koanf:"timeout" validate:"required"`
	AutoVerify    bool          `koanf:"auto_verify"`
	FeeWallet     string        `koanf:"fee_wallet"`
	FeePercentage float64       `koanf:"fee_percentage" validate:"gte=0,lte=1"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type LedgerConfig struct {
	RPCURL           string        `koanf:"rpc_url"`
	ConnTimeout      time.Duration `koanf:"conn_timeout" validate:"required"`
	MinConfirmations int           `koanf:"min_confirmations"`
}

type StoreConfig struct {
	Backend   string        `koanf:"backend" validate:"oneof=memory bbolt"`
	Path      string        `koanf:"path"`
	Retention time.Duration `koanf:"retention" validate:"required"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

// DefaultPrice parses the configured default amount. Load already validated
// that the string is a well-formed positive decimal.
func (c PaymentConfig) DefaultPrice() decimal.Decimal {
	price, _ := decimal.NewFromString(c.DefaultAmount)
	return price
}

// FeeRate returns the fee percentage as a decimal in [0,1].
func (c PaymentConfig) FeeRate() decimal.Decimal {
	return decimal.NewFromFloat(c.FeePercentage)
}

// defaultRPCURLs maps network identifiers to public RPC endpoints, used when
// no explicit ledger RPC URL is configured.
var defaultRPCURLs = map[string]string{
	"solana-mainnet": "https://api.mainnet-beta.solana.com",
	"solana-devnet":  "https://api.devnet.solana.com",
	"solana-testnet": "https://api.testnet.solana.com",
}

// RPCURLFor resolves the ledger endpoint for a network, preferring the
// explicitly configured URL.
func (c LedgerConfig) RPCURLFor(network string) string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	if url, ok := defaultRPCURLs[network]; ok {
		return url
	}
	return defaultRPCURLs["solana-devnet"]
}

func (c LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("FLY402_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "FLY402_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	mainConfig.applyDefaults()

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if price, perr := decimal.NewFromString(mainConfig.Payment.DefaultAmount); perr != nil || !price.IsPositive() {
		logger.Error("invalid default amount", "value", mainConfig.Payment.DefaultAmount)
		return nil, &InvalidDefaultAmountError{Value: mainConfig.Payment.DefaultAmount}
	}

	return mainConfig, nil
}

// applyDefaults fills the optional settings with the protocol defaults used
// by every 402fly implementation.
func (c *Config) applyDefaults() {
	if c.Payment.Network == "" {
		c.Payment.Network = "solana-devnet"
	}
	if c.Payment.DefaultAmount == "" {
		c.Payment.DefaultAmount = "0.01"
	}
	if c.Payment.TokenDecimals == 0 {
		c.Payment.TokenDecimals = 6
	}
	if c.Payment.Timeout == 0 {
		c.Payment.Timeout = 5 * time.Minute
	}
	if c.Ledger.ConnTimeout == 0 {
		c.Ledger.ConnTimeout = 30 * time.Second
	}
	if c.Ledger.MinConfirmations == 0 {
		c.Ledger.MinConfirmations = 1
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Store.Retention == 0 {
		// Replay records must outlive the longest possible challenge window.
		c.Store.Retention = 2 * c.Payment.Timeout
	}
	if c.Server.Port == "" {
		c.Server.Port = "8402"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
}

type InvalidDefaultAmountError struct {
	Value string
}

func (e *InvalidDefaultAmountError) Error() string {
	return "default amount must be a positive decimal, got " + e.Value
}

package ops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"portwatch/internal/adapter"
	"portwatch/internal/adapter/enum"
	"portwatch/internal/schedule"
	"portwatch/pkg/exception"
)

const EnvPrefix = "PORTWATCH_"

// CallConfig is the schedule of one call kind.
type CallConfig struct {
	Period   time.Duration `env:"PERIOD"`
	Weight   int           `env:"WEIGHT"`
	Priority int           `env:"PRIORITY"`
}

// Config is read from PORTWATCH_* variables.
type Config struct {
	Base       string        `env:"BASE"`
	Proxy      string        `env:"PROXY"`
	RestUrl    string        `env:"REST_URL"`
	StreamUrl  string        `env:"STREAM_URL"`
	RecvWindow time.Duration `env:"RECV_WINDOW"`

	Capacity   int           `env:"CAPACITY"`
	Tick       time.Duration `env:"TICK"`
	Balances   CallConfig    `envPrefix:"BALANCES_"`
	OpenOrders CallConfig    `envPrefix:"OPEN_ORDERS_"`
	PriceTable CallConfig    `envPrefix:"PRICE_TABLE_"`
	Symbols    CallConfig    `envPrefix:"SYMBOLS_"`

	HttpAddr    string        `env:"HTTP_ADDR"`
	BusCapacity int           `env:"BUS_CAPACITY"`
	RedisUrl    string        `env:"REDIS_URL"`
	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL"`
	PostgresDSN string        `env:"POSTGRES_DSN"`

	CredentialsFile string `env:"CREDENTIALS_FILE"`
	ApiKey          string `env:"API_KEY"`
	ApiSecret       string `env:"API_SECRET"`

	PyroscopeAddr string `env:"PYROSCOPE_ADDR"`
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		Base:       "BTC",
		Proxy:      "USDT",
		RestUrl:    "https://api.binance.com",
		StreamUrl:  "wss://stream.binance.com:9443/ws",
		RecvWindow: 5 * time.Second,

		Capacity:   5,
		Tick:       1100 * time.Millisecond,
		Balances:   CallConfig{Period: time.Minute, Weight: 5, Priority: 0},
		OpenOrders: CallConfig{Period: 20 * time.Second, Weight: 5, Priority: 2},
		PriceTable: CallConfig{Period: 3 * time.Second, Weight: 1, Priority: 0},
		Symbols:    CallConfig{Period: 5 * time.Minute, Weight: 1, Priority: 1},

		HttpAddr:    ":8080",
		BusCapacity: 64,
		SnapshotTTL: 10 * time.Minute,

		CredentialsFile: "apiKeys.json",
	}
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	return LoadFrom(nil)
}

// LoadFrom resolves the configuration from environment, or from the process
// environment when it is nil.
func LoadFrom(environment map[string]string) (Config, error) {
	cfg := Default()
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environment,
	}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Base = strings.ToUpper(cfg.Base)
	cfg.Proxy = strings.ToUpper(cfg.Proxy)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (cfg Config) Validate() error {
	if cfg.Base == "" {
		return fmt.Errorf("base currency is empty")
	}
	if cfg.Proxy == cfg.Base {
		return fmt.Errorf("proxy %s equals base currency", cfg.Proxy)
	}
	if cfg.Capacity <= 0 {
		return fmt.Errorf("capacity must be > 0: %w", exception.ErrInvalidBudget)
	}
	if cfg.Tick <= 0 {
		return fmt.Errorf("tick must be > 0")
	}
	for kind, c := range cfg.calls() {
		if c.Period < 0 {
			return fmt.Errorf("%s period must be >= 0", kind)
		}
		if c.Weight <= 0 {
			return fmt.Errorf("%s weight must be > 0: %w", kind, exception.ErrInvalidCall)
		}
		if c.Weight > cfg.Capacity {
			return fmt.Errorf("%s weight %d exceeds capacity %d: %w", kind, c.Weight, cfg.Capacity, exception.ErrCallTooHeavy)
		}
	}
	if cfg.BusCapacity <= 0 {
		return fmt.Errorf("bus capacity must be > 0")
	}
	return nil
}

func (cfg Config) calls() map[enum.CallKind]CallConfig {
	return map[enum.CallKind]CallConfig{
		enum.CallBalances:   cfg.Balances,
		enum.CallOpenOrders: cfg.OpenOrders,
		enum.CallPriceTable: cfg.PriceTable,
		enum.CallSymbols:    cfg.Symbols,
	}
}

// Specs returns the producer schedule in kind order.
func (cfg Config) Specs() []schedule.Spec {
	calls := cfg.calls()
	specs := make([]schedule.Spec, 0, len(calls))
	for _, kind := range enum.CallKinds() {
		c := calls[kind]
		specs = append(specs, schedule.Spec{
			Kind:     kind,
			Weight:   c.Weight,
			Priority: c.Priority,
			Period:   c.Period,
		})
	}
	return specs
}

type credential struct {
	ApiKey    string `json:"api_key"`
	ApiSecret string `json:"api_secret"`
}

// LoadCredentials returns the API token from PORTWATCH_API_KEY and
// PORTWATCH_API_SECRET, or else from the first entry of the credentials file.
func (cfg Config) LoadCredentials() (adapter.Token, error) {
	if cfg.ApiKey != "" || cfg.ApiSecret != "" {
		if err := checkCredential(cfg.ApiKey, cfg.ApiSecret); err != nil {
			return adapter.Token{}, &exception.ConfigError{Source: "env", Err: err}
		}
		return adapter.NewToken(cfg.ApiKey, cfg.ApiSecret), nil
	}

	return LoadCredentialsFile(cfg.CredentialsFile)
}

// LoadCredentialsFile reads a JSON array of {"api_key", "api_secret"} and
// returns its first entry.
func LoadCredentialsFile(path string) (adapter.Token, error) {
	if path == "" {
		return adapter.Token{}, &exception.ConfigError{Err: exception.ErrNotConfigured}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return adapter.Token{}, &exception.ConfigError{Source: path, Err: exception.ErrNotConfigured}
	}
	if err != nil {
		return adapter.Token{}, &exception.ConfigError{Source: path, Err: fmt.Errorf("read file: %w", err)}
	}

	var creds []credential
	if err := sonic.ConfigFastest.Unmarshal(data, &creds); err != nil {
		return adapter.Token{}, &exception.ConfigError{Source: path, Err: fmt.Errorf("%w: %v", exception.ErrMalformedCredential, err)}
	}

	if len(creds) == 0 {
		return adapter.Token{}, &exception.ConfigError{Source: path, Err: fmt.Errorf("%w: no entries", exception.ErrMalformedCredential)}
	}

	key, secret := strings.TrimSpace(creds[0].ApiKey), strings.TrimSpace(creds[0].ApiSecret)
	if err := checkCredential(key, secret); err != nil {
		return adapter.Token{}, &exception.ConfigError{Source: path, Err: err}
	}

	return adapter.NewToken(key, secret), nil
}

func checkCredential(key, secret string) error {
	if key == "" || secret == "" {
		return fmt.Errorf("%w: empty api key or secret", exception.ErrMalformedCredential)
	}

	if !adapter.FitsStr64(key) || !adapter.FitsStr64(secret) {
		return fmt.Errorf("%w: api key and secret must be at most %d bytes without NUL", exception.ErrMalformedCredential, len(adapter.Str64{}))
	}

	return nil
}

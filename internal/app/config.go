package app

import (
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"fluxpay/internal/domain"
)

const (
	defaultNodeURL        = "wss://clearnet-sandbox.yellow.com/ws"
	defaultDialTimeout    = 10 * time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultConfirmTimeout = 5 * time.Minute
	defaultChainID        = 11155111
	defaultDecimals       = 6
	defaultAsset          = "ytest.usd"
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
)

var (
	defaultCustody     = common.HexToAddress("0x019B65A265EB3363822f2752141b3dF16131b262")
	defaultAdjudicator = common.HexToAddress("0x7c7ccbc98469190849BCC6c926307794fDfB11F2")
	defaultToken       = common.HexToAddress("0xDB9F293e3898c9E5536A3be1b0C56c89d2b32DEb")
)

// Config is the FluxPay client configuration.
type Config struct {
	Home string `toml:"-"` // data directory, e.g. $HOME/.fluxpay

	Node    Node
	Auth    Auth
	Chain   Chain
	Logging Logging
	Metrics Metrics
}

// Node is the clearing node connection configuration.
type Node struct {
	// URL is the websocket endpoint of the clearing node.
	URL string

	// DialTimeout bounds the websocket handshake.
	DialTimeout time.Duration

	// RequestTimeout bounds each request/reply exchange.
	RequestTimeout time.Duration

	// ConfirmTimeout bounds operations that wait for an on-chain receipt.
	ConfirmTimeout time.Duration
}

// Allowance is one asset cap granted to the session key.
type Allowance struct {
	Asset  string
	Amount string
}

// Auth is the policy the wallet grants to each session key.
type Auth struct {
	Application string
	Scope       string
	Allowances  []Allowance
	TTL         time.Duration
}

// Chain selects the custody chain and the token payments use.
type Chain struct {
	// RPCURL is the Ethereum JSON-RPC endpoint. When empty, on-chain steps
	// fail with ErrNoChain.
	RPCURL string

	ChainID     uint64
	Custody     common.Address
	Adjudicator common.Address
	Token       common.Address

	// Decimals is the token's decimals, used to read human amounts.
	Decimals int32

	// Asset is the ledger symbol payments are made in.
	Asset string
}

// Logging is the logging configuration.
type Logging struct {
	// Level is one of panic, fatal, error, warn, info, debug, trace.
	Level string

	// Format is text or json.
	Format string
}

// Metrics is the Prometheus endpoint configuration.
type Metrics struct {
	// Addr is the listen address for /metrics. Empty disables it.
	Addr string
}

// DefaultConfig returns the sandbox configuration.
func DefaultConfig() *Config {
	return &Config{
		Node: Node{
			URL:            defaultNodeURL,
			DialTimeout:    defaultDialTimeout,
			RequestTimeout: defaultRequestTimeout,
			ConfirmTimeout: defaultConfirmTimeout,
		},
		Auth: Auth{
			Application: "Test app",
			Scope:       "test.app",
			Allowances:  []Allowance{{Asset: defaultAsset, Amount: "1000000000"}},
			TTL:         time.Hour,
		},
		Chain: Chain{
			ChainID:     defaultChainID,
			Custody:     defaultCustody,
			Adjudicator: defaultAdjudicator,
			Token:       defaultToken,
			Decimals:    defaultDecimals,
			Asset:       defaultAsset,
		},
		Logging: Logging{Level: defaultLogLevel, Format: defaultLogFormat},
	}
}

// Load parses b over the defaults and validates the result.
func Load(b []byte) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.Decode(string(b), cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads path. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}
	return Load(b)
}

// Validate checks the configuration, filling in defaults for omitted
// timeouts and logging options.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Node.URL) == "" {
		return errors.New("config: Node: URL is required")
	}
	if c.Node.DialTimeout <= 0 {
		c.Node.DialTimeout = defaultDialTimeout
	}
	if c.Node.RequestTimeout <= 0 {
		c.Node.RequestTimeout = defaultRequestTimeout
	}
	if c.Node.ConfirmTimeout <= 0 {
		c.Node.ConfirmTimeout = defaultConfirmTimeout
	}
	if c.Auth.TTL <= 0 {
		return errors.New("config: Auth: TTL must be positive")
	}
	for i, a := range c.Auth.Allowances {
		if a.Asset == "" {
			return errors.Errorf("config: Auth: allowance %d has no asset", i)
		}
		if _, ok := new(big.Int).SetString(a.Amount, 10); !ok {
			return errors.Errorf("config: Auth: allowance %d amount %q is not an integer", i, a.Amount)
		}
	}
	if c.Chain.ChainID == 0 {
		return errors.New("config: Chain: ChainID is required")
	}
	if c.Chain.Asset == "" {
		c.Chain.Asset = defaultAsset
	}
	if c.Chain.Decimals < 0 {
		return errors.New("config: Chain: Decimals must not be negative")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return errors.Errorf("config: Logging: Level '%v' is invalid", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "":
		c.Logging.Format = defaultLogFormat
	case "text", "json":
	default:
		return errors.Errorf("config: Logging: Format '%v' is invalid", c.Logging.Format)
	}
	return nil
}

// AuthAllowances returns the configured allowances as domain values.
func (c *Config) AuthAllowances() []domain.Allowance {
	out := make([]domain.Allowance, 0, len(c.Auth.Allowances))
	for _, a := range c.Auth.Allowances {
		out = append(out, domain.Allowance{Asset: domain.Asset(a.Asset), Amount: a.Amount})
	}
	return out
}

// ConfigureLogging applies the logging section to the standard logrus logger.
func ConfigureLogging(l Logging) error {
	lvl, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	logrus.SetLevel(lvl)
	switch l.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

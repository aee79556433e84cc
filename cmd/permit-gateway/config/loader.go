package config

import (
	"bytes"
	_ "embed"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/balances"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chains"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/constants"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/securefile"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/session"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/signing"
)

//go:embed config.yaml
var EmbeddedConfigYAML []byte

const EnvPrefix = "PERMIT_GATEWAY"

const (
	WalletModeLocal = "local"
	WalletModeRPC   = "rpc"

	ApproveAuto   = "auto"
	ApprovePrompt = "prompt"
)

type ServerSettings struct {
	Host           string
	Port           string
	AllowedOrigins []string
}

type SessionSettings struct {
	RequiredChainID    uint64
	Principal          string
	OwnershipStatement string
}

type PermitSettings struct {
	Spender        string
	Value          string
	DeadlineTTL    time.Duration
	AllowUnlimited bool
}

type BalanceSettings struct {
	IncludeZero     bool
	MaxConcurrency  int
	DisplayDecimals int
}

type WalletSettings struct {
	Mode         string
	RPCURL       string
	PollInterval time.Duration
	KeystorePath string
	ChainID      uint64
	Approve      string
}

type StoreSettings struct {
	Path string
}

type Config struct {
	Server   ServerSettings
	Session  SessionSettings
	Chains   []chains.NetworkConfig
	Permits  PermitSettings
	Balances BalanceSettings
	Wallet   WalletSettings
	Store    StoreSettings
}

func DefaultPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".config", constants.AppName),
		filepath.Join(home, "config"),
		".",
	}
}

// Load merges the embedded defaults with the first config.yaml found in
// paths, applies PERMIT_GATEWAY_* environment overrides and normalizes the
// result.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(EmbeddedConfigYAML)); err != nil {
		return nil, errors.Wrap(err, "read embedded config")
	}

	v.SetConfigName("config")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if len(paths) > 0 {
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "merge config file")
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize trims and canonicalizes every section and fills defaults, then
// validates the result.
func (c *Config) Normalize() error {
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	c.Server.Port = strings.TrimSpace(c.Server.Port)
	if c.Server.Port == "" {
		return errors.New("server.port is empty")
	}
	origins := c.Server.AllowedOrigins[:0]
	for _, o := range c.Server.AllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	c.Server.AllowedOrigins = origins

	c.Session.Principal = strings.TrimSpace(c.Session.Principal)
	c.Session.OwnershipStatement = strings.TrimSpace(c.Session.OwnershipStatement)
	if c.Session.OwnershipStatement == "" {
		c.Session.OwnershipStatement = signing.DefaultStatement
	}

	if err := c.NormalizeChains(); err != nil {
		return err
	}
	if err := c.NormalizePermits(); err != nil {
		return err
	}
	if c.Balances.MaxConcurrency < 0 {
		return errors.New("balances.maxConcurrency must not be negative")
	}
	if c.Balances.DisplayDecimals <= 0 {
		c.Balances.DisplayDecimals = constants.DisplayDecimalsDefault
	}
	if err := c.NormalizeWallet(); err != nil {
		return err
	}
	return c.NormalizeStore()
}

func (c *Config) NormalizeChains() error {
	if len(c.Chains) == 0 {
		return errors.New("no chains configured")
	}
	for i := range c.Chains {
		c.Chains[i].Normalize()
	}
	r, err := c.Registry()
	if err != nil {
		return err
	}
	if !r.Contains(c.Session.RequiredChainID) {
		return errors.Newf("session.requiredChainId %d is not a configured chain", c.Session.RequiredChainID)
	}
	return nil
}

func (c *Config) NormalizePermits() error {
	spender := strings.TrimSpace(c.Permits.Spender)
	if !common.IsHexAddress(spender) {
		return errors.Newf("permits.spender: invalid address %q", c.Permits.Spender)
	}
	// canonical form: checksummed hex string
	c.Permits.Spender = common.HexToAddress(spender).Hex()

	c.Permits.Value = strings.ToLower(strings.TrimSpace(c.Permits.Value))
	if _, _, err := ParsePermitValue(c.Permits.Value); err != nil {
		return err
	}
	if c.Permits.DeadlineTTL <= 0 {
		return errors.New("permits.deadlineTtl must be positive")
	}
	return nil
}

func (c *Config) NormalizeWallet() error {
	c.Wallet.Mode = strings.ToLower(strings.TrimSpace(c.Wallet.Mode))
	c.Wallet.RPCURL = strings.TrimSpace(c.Wallet.RPCURL)
	c.Wallet.KeystorePath = strings.TrimSpace(c.Wallet.KeystorePath)
	c.Wallet.Approve = strings.ToLower(strings.TrimSpace(c.Wallet.Approve))

	switch c.Wallet.Mode {
	case WalletModeLocal:
		if c.Wallet.ChainID == 0 {
			c.Wallet.ChainID = c.Session.RequiredChainID
		}
		switch c.Wallet.Approve {
		case "":
			c.Wallet.Approve = ApprovePrompt
		case ApproveAuto, ApprovePrompt:
		default:
			return errors.Newf("wallet.approve %q (allowed: auto, prompt)", c.Wallet.Approve)
		}
	case WalletModeRPC:
		if c.Wallet.RPCURL == "" {
			return errors.New("wallet.rpcUrl is required in rpc mode")
		}
	default:
		return errors.Newf("wallet.mode %q (allowed: local, rpc)", c.Wallet.Mode)
	}
	if c.Wallet.PollInterval <= 0 {
		c.Wallet.PollInterval = 2 * time.Second
	}
	return nil
}

// NormalizeStore resolves an empty store path next to the keystore.
func (c *Config) NormalizeStore() error {
	c.Store.Path = strings.TrimSpace(c.Store.Path)
	if c.Store.Path != "" {
		return nil
	}
	paths, err := securefile.ConfigPathCandidates(constants.AppName, constants.StoreFile)
	if err != nil {
		return err
	}
	c.Store.Path = paths[0]
	return nil
}

func (c *Config) Registry() (*chains.Registry, error) {
	return chains.NewRegistryFromNetworks(c.Chains)
}

func (c *Config) BalanceConfig() balances.Config {
	return balances.Config{
		IncludeZero:    c.Balances.IncludeZero,
		MaxConcurrency: c.Balances.MaxConcurrency,
	}
}

func (c *Config) PermitPolicy() (session.PermitPolicy, error) {
	raw, amount, err := ParsePermitValue(c.Permits.Value)
	if err != nil {
		return session.PermitPolicy{}, err
	}
	return session.PermitPolicy{
		Spender:     common.HexToAddress(c.Permits.Spender),
		Value:       raw,
		Amount:      amount,
		DeadlineTTL: c.Permits.DeadlineTTL,
	}, nil
}

// ParsePermitValue accepts "max" for an unlimited approval or a positive
// decimal amount in token units. Exactly one of the results is non-nil.
func ParsePermitValue(s string) (*big.Int, *decimal.Decimal, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "max" {
		return signing.MaxUint256().ToBig(), nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "permits.value %q", s)
	}
	if !d.IsPositive() {
		return nil, nil, errors.Newf("permits.value %q must be positive", s)
	}
	return nil, &d, nil
}

package chains

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NetworkConfig is the on-disk (YAML) description of a supported chain.
type NetworkConfig struct {
	Name           string         `json:"name" yaml:"name" mapstructure:"name"`
	ChainID        uint64         `json:"chainId" yaml:"chainId" mapstructure:"chainId"`
	RPCURL         string         `json:"rpcUrl" yaml:"rpcUrl" mapstructure:"rpcUrl"`
	Explorer       string         `json:"explorer" yaml:"explorer" mapstructure:"explorer"`
	NativeCurrency NativeCurrency `json:"nativeCurrency" yaml:"nativeCurrency" mapstructure:"nativeCurrency"`
	Token          TokenSettings  `json:"token" yaml:"token" mapstructure:"token"`
}

type TokenSettings struct {
	Address       string `json:"address" yaml:"address" mapstructure:"address"`
	Symbol        string `json:"symbol" yaml:"symbol" mapstructure:"symbol"`
	Decimals      uint8  `json:"decimals" yaml:"decimals" mapstructure:"decimals"`
	PermitName    string `json:"permitName" yaml:"permitName" mapstructure:"permitName"`
	PermitVersion string `json:"permitVersion" yaml:"permitVersion" mapstructure:"permitVersion"`
}

type NativeCurrency struct {
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	Symbol   string `json:"symbol" yaml:"symbol" mapstructure:"symbol"`
	Decimals uint8  `json:"decimals" yaml:"decimals" mapstructure:"decimals"`
}

// ChainConfig is an immutable, validated registry entry.
type ChainConfig struct {
	ChainID        uint64
	Name           string
	RPCURL         string
	Explorer       string
	NativeCurrency NativeCurrency
	Token          TokenConfig
}

type TokenConfig struct {
	Address       common.Address
	Symbol        string
	Decimals      uint8
	PermitName    string
	PermitVersion string
}

func (c ChainConfig) ChainIDHex() string {
	return hexutil.EncodeUint64(c.ChainID)
}

// Normalize trims every field, lower-cases the name and fills gaps from the
// well-known chain table.
func (n *NetworkConfig) Normalize() {
	if n == nil {
		return
	}
	n.Name = strings.ToLower(strings.TrimSpace(n.Name))
	n.RPCURL = strings.TrimSpace(n.RPCURL)
	n.Explorer = strings.TrimRight(strings.TrimSpace(n.Explorer), "/")
	n.NativeCurrency.Name = strings.TrimSpace(n.NativeCurrency.Name)
	n.NativeCurrency.Symbol = strings.TrimSpace(n.NativeCurrency.Symbol)
	n.Token.Address = strings.TrimSpace(n.Token.Address)
	n.Token.Symbol = strings.TrimSpace(n.Token.Symbol)
	n.Token.PermitName = strings.TrimSpace(n.Token.PermitName)
	n.Token.PermitVersion = strings.TrimSpace(n.Token.PermitVersion)

	applyDefaults(n)
}

// Resolve validates a NetworkConfig and turns it into a ChainConfig.
func (n NetworkConfig) Resolve() (ChainConfig, error) {
	n.Normalize()

	if n.ChainID == 0 {
		return ChainConfig{}, errors.Newf("network %q: chainId is 0", n.Name)
	}
	if n.Name == "" {
		return ChainConfig{}, errors.Newf("chain %d: name is empty", n.ChainID)
	}
	if n.RPCURL == "" {
		return ChainConfig{}, errors.Newf("network %q: rpcUrl is empty", n.Name)
	}

	addr := n.Token.Address
	if addr != "" && !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		addr = "0x" + addr
	}
	if !common.IsHexAddress(addr) {
		return ChainConfig{}, errors.Newf("network %q: invalid token address %q", n.Name, n.Token.Address)
	}
	token := common.HexToAddress(addr)
	if token == (common.Address{}) {
		return ChainConfig{}, errors.Newf("network %q: token address is zero", n.Name)
	}
	if n.Token.PermitName == "" {
		return ChainConfig{}, errors.Newf("network %q: token permitName is empty", n.Name)
	}
	if n.Token.PermitVersion == "" {
		return ChainConfig{}, errors.Newf("network %q: token permitVersion is empty", n.Name)
	}

	return ChainConfig{
		ChainID:        n.ChainID,
		Name:           n.Name,
		RPCURL:         n.RPCURL,
		Explorer:       n.Explorer,
		NativeCurrency: n.NativeCurrency,
		Token: TokenConfig{
			Address:       token,
			Symbol:        n.Token.Symbol,
			Decimals:      n.Token.Decimals,
			PermitName:    n.Token.PermitName,
			PermitVersion: n.Token.PermitVersion,
		},
	}, nil
}

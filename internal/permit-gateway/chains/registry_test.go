package chains

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

func testNetworks() []NetworkConfig {
	return []NetworkConfig{
		{
			Name:    "BSC",
			ChainID: 56,
			RPCURL:  " https://bsc.example ",
			Token: TokenSettings{
				Address:       "8ac76a51cc950d9822d68b83fe1ad97b32cd580d",
				Symbol:        "USDC",
				Decimals:      18,
				PermitName:    "USD Coin",
				PermitVersion: "1",
			},
		},
		{
			ChainID: 137,
			RPCURL:  "https://polygon.example",
			Token: TokenSettings{
				Address:       "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
				Symbol:        "USDC",
				Decimals:      6,
				PermitName:    "USD Coin",
				PermitVersion: "2",
			},
		},
	}
}

func TestRegistryKeepsDeclaredOrder(t *testing.T) {
	r, err := NewRegistryFromNetworks(testNetworks())
	require.NoError(t, err)

	list := r.ListChains()
	require.Len(t, list, 2)
	assert.Equal(t, uint64(56), list[0].ChainID)
	assert.Equal(t, uint64(137), list[1].ChainID)

	// defaults fill the gaps
	assert.Equal(t, "bsc", list[0].Name)
	assert.Equal(t, "https://bsc.example", list[0].RPCURL)
	assert.Equal(t, "BNB", list[0].NativeCurrency.Symbol)
	assert.Equal(t, "polygon", list[1].Name)
	assert.Equal(t, "https://polygonscan.com", list[1].Explorer)
	assert.Equal(t, "0x89", list[1].ChainIDHex())

	// per-chain version is preserved
	assert.Equal(t, "1", list[0].Token.PermitVersion)
	assert.Equal(t, "2", list[1].Token.PermitVersion)

	list[0].Name = "mutated"
	again := r.ListChains()
	assert.Equal(t, "bsc", again[0].Name)
}

func TestRegistryLookup(t *testing.T) {
	r, err := NewRegistryFromNetworks(testNetworks())
	require.NoError(t, err)

	c, err := r.Lookup(137)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), c.Token.Decimals)
	assert.True(t, r.Contains(56))
	assert.Equal(t, 2, r.Len())

	_, err = r.Lookup(1)
	require.ErrorIs(t, err, wtypes.ErrUnsupportedChain)
	assert.False(t, r.Contains(1))
}

func TestRegistryRejectsDuplicateChainID(t *testing.T) {
	nets := testNetworks()
	nets[1].ChainID = 56

	_, err := NewRegistryFromNetworks(nets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate chainId 56")
}

func TestResolveValidation(t *testing.T) {
	cases := map[string]func(n *NetworkConfig){
		"zero chain id":  func(n *NetworkConfig) { n.ChainID = 0 },
		"no rpc":         func(n *NetworkConfig) { n.RPCURL = "  " },
		"bad address":    func(n *NetworkConfig) { n.Token.Address = "0x1234" },
		"zero address":   func(n *NetworkConfig) { n.Token.Address = "0x0000000000000000000000000000000000000000" },
		"no permit name": func(n *NetworkConfig) { n.Token.PermitName = "" },
		"no version":     func(n *NetworkConfig) { n.Token.PermitVersion = "" },
		"unknown no name": func(n *NetworkConfig) {
			n.ChainID = 999999
			n.Name = ""
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			n := testNetworks()[0]
			mutate(&n)
			_, err := n.Resolve()
			require.Error(t, err)
		})
	}
}

func TestNewRegistryRejectsEmpty(t *testing.T) {
	_, err := NewRegistry(nil)
	require.Error(t, err)
}

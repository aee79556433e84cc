package testhelper

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chains"
)

const (
	ChainBSC     uint64 = 56
	ChainPolygon uint64 = 137
	ChainBase    uint64 = 8453
)

// Networks is the three-chain fixture most tests run against.
func Networks() []chains.NetworkConfig {
	return []chains.NetworkConfig{
		{
			Name:    "bsc",
			ChainID: ChainBSC,
			RPCURL:  "http://bsc.invalid",
			Token: chains.TokenSettings{
				Address:       "0x55d398326f99059fF775485246999027B3197955",
				Symbol:        "USDT",
				Decimals:      18,
				PermitName:    "Tether USD",
				PermitVersion: "1",
			},
		},
		{
			Name:    "polygon",
			ChainID: ChainPolygon,
			RPCURL:  "http://polygon.invalid",
			Token: chains.TokenSettings{
				Address:       "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
				Symbol:        "USDC",
				Decimals:      6,
				PermitName:    "USD Coin",
				PermitVersion: "2",
			},
		},
		{
			Name:    "base",
			ChainID: ChainBase,
			RPCURL:  "http://base.invalid",
			Token: chains.TokenSettings{
				Address:       "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
				Symbol:        "USDC",
				Decimals:      6,
				PermitName:    "USD Coin",
				PermitVersion: "2",
			},
		},
	}
}

func Registry(t testing.TB) *chains.Registry {
	t.Helper()
	r, err := chains.NewRegistryFromNetworks(Networks())
	require.NoError(t, err)
	return r
}

// Tokens builds one FakeToken per registry entry, in registry order.
func Tokens(r *chains.Registry) []*FakeToken {
	list := r.ListChains()
	out := make([]*FakeToken, 0, len(list))
	for _, c := range list {
		out = append(out, NewFakeToken(c))
	}
	return out
}

// Pool wires a ClientPool to the given fake tokens.
func Pool(t testing.TB, r *chains.Registry, tokens ...*FakeToken) *chains.ClientPool {
	t.Helper()
	p, err := chains.NewClientPool(r, chains.WithDialer(Dialer(tokens...)))
	require.NoError(t, err)
	return p
}

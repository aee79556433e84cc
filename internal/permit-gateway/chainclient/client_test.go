package chainclient

import (
	"context"
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chains"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/digest"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/ethwallet/keystore"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/testhelper"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/walletprovider/local"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

var owner = common.HexToAddress("0x00000000000000000000000000000000000000aa")

type fixture struct {
	registry *chains.Registry
	tokens   []*testhelper.FakeToken
	client   *Client
	wallet   *local.Provider
}

func newFixture(t *testing.T, walletChain uint64, opts ...local.Option) *fixture {
	t.Helper()
	r := testhelper.Registry(t)
	tokens := testhelper.Tokens(r)

	w, err := keystore.NewRandomWallet()
	require.NoError(t, err)
	wallet := local.New(w, walletChain, opts...)

	c, err := New(r, testhelper.Pool(t, r, tokens...), wallet, WithDisplayDecimals(2))
	require.NoError(t, err)
	return &fixture{registry: r, tokens: tokens, client: c, wallet: wallet}
}

func (f *fixture) chain(t *testing.T, id uint64) chains.ChainConfig {
	t.Helper()
	c, err := f.registry.Lookup(id)
	require.NoError(t, err)
	return c
}

func TestGetBalance(t *testing.T) {
	f := newFixture(t, testhelper.ChainBSC)
	raw, _ := new(big.Int).SetString("1234560000000000000", 10)
	f.tokens[0].SetBalance(owner, raw)

	bal, err := f.client.GetBalance(context.Background(), f.chain(t, testhelper.ChainBSC), owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(56), bal.ChainID)
	assert.Equal(t, "bsc", bal.ChainName)
	assert.Equal(t, "USDT", bal.Symbol)
	assert.Equal(t, uint8(18), bal.Decimals)
	assert.Equal(t, 0, raw.Cmp(bal.RawAmount))
	assert.Equal(t, "1.23456", bal.HumanAmount.String())
	assert.Equal(t, "1.23", bal.Display)
}

func TestGetBalanceRPCFailureIsChainScoped(t *testing.T) {
	f := newFixture(t, testhelper.ChainBSC)
	f.tokens[1].FailWith(errors.New("503 service unavailable"))

	_, err := f.client.GetBalance(context.Background(), f.chain(t, testhelper.ChainPolygon), owner)
	require.ErrorIs(t, err, wtypes.ErrRPC)

	var ce *wtypes.ChainError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, testhelper.ChainPolygon, ce.ChainID)
}

func TestNonceAndDomainAreReadEveryTime(t *testing.T) {
	f := newFixture(t, testhelper.ChainBSC)
	ctx := context.Background()
	chain := f.chain(t, testhelper.ChainPolygon)

	f.tokens[1].SetNonce(owner, 3)
	n, err := f.client.GetNonce(ctx, chain, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n.Int64())

	f.tokens[1].SetNonce(owner, 4)
	n, err = f.client.GetNonce(ctx, chain, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n.Int64())
	assert.Equal(t, 2, f.tokens[1].Calls("nonces"))

	sep, err := f.client.GetDomainSeparator(ctx, chain)
	require.NoError(t, err)
	want, err := digest.DomainSeparatorFor(digest.Domain("USD Coin", "2", testhelper.ChainPolygon, chain.Token.Address))
	require.NoError(t, err)
	assert.Equal(t, want, sep)

	_, err = f.client.GetDomainSeparator(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, 2, f.tokens[1].Calls("DOMAIN_SEPARATOR"))
}

func TestEnsureChainNoopWhenAlreadyThere(t *testing.T) {
	f := newFixture(t, testhelper.ChainBSC)
	require.NoError(t, f.client.EnsureChain(context.Background(), testhelper.ChainBSC))
	assert.Empty(t, f.wallet.Events())
}

func TestEnsureChainAddsUnknownChainThenSwitches(t *testing.T) {
	var kinds []local.RequestKind
	f := newFixture(t, 1, local.WithApprover(func(_ context.Context, req local.ApprovalRequest) error {
		kinds = append(kinds, req.Kind)
		if req.Kind == local.KindAddChain {
			assert.Equal(t, []string{"http://polygon.invalid"}, req.AddChain.RPCURLs)
			assert.Equal(t, "POL", req.AddChain.NativeCurrency.Symbol)
		}
		return nil
	}))

	require.NoError(t, f.client.EnsureChain(context.Background(), testhelper.ChainPolygon))
	assert.Equal(t, []local.RequestKind{local.KindAddChain, local.KindSwitchChain}, kinds)

	id, err := f.wallet.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testhelper.ChainPolygon, id)
}

func TestEnsureChainRejections(t *testing.T) {
	reject := func(kind local.RequestKind) local.Option {
		return local.WithApprover(func(_ context.Context, req local.ApprovalRequest) error {
			if req.Kind == kind {
				return local.ErrDeclined
			}
			return nil
		})
	}

	t.Run("switch rejected", func(t *testing.T) {
		f := newFixture(t, 1, reject(local.KindSwitchChain), local.WithKnownChains(testhelper.ChainBSC))
		err := f.client.EnsureChain(context.Background(), testhelper.ChainBSC)
		require.ErrorIs(t, err, wtypes.ErrChainSwitchRejected)
	})

	t.Run("add rejected", func(t *testing.T) {
		f := newFixture(t, 1, reject(local.KindAddChain))
		err := f.client.EnsureChain(context.Background(), testhelper.ChainBSC)
		require.ErrorIs(t, err, wtypes.ErrChainSwitchRejected)
	})

	t.Run("unsupported target", func(t *testing.T) {
		f := newFixture(t, testhelper.ChainBSC)
		err := f.client.EnsureChain(context.Background(), 1)
		require.ErrorIs(t, err, wtypes.ErrUnsupportedChain)
	})
}

func TestAddChainParamsFromRegistry(t *testing.T) {
	f := newFixture(t, testhelper.ChainBSC)
	p := AddChainParams(f.chain(t, testhelper.ChainBase))
	assert.Equal(t, testhelper.ChainBase, p.ChainID)
	assert.Equal(t, []string{"http://base.invalid"}, p.RPCURLs)
	assert.Equal(t, "ETH", p.NativeCurrency.Symbol)
	assert.Equal(t, []string{"https://basescan.org"}, p.BlockExplorerURLs)
}

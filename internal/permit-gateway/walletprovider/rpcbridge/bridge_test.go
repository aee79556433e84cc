package rpcbridge

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chainclient"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/ethwallet/keystore"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/signing"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/testhelper"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/walletprovider/local"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

// The wallet side of the bridge: a local wallet served over JSON-RPC.

type ethAPI struct{ w *local.Provider }

func (a *ethAPI) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return a.w.RequestAccounts(ctx)
}

func (a *ethAPI) Accounts(ctx context.Context) ([]common.Address, error) {
	return a.w.Accounts(ctx)
}

func (a *ethAPI) ChainId(ctx context.Context) (hexutil.Uint64, error) {
	id, err := a.w.ChainID(ctx)
	return hexutil.Uint64(id), err
}

func (a *ethAPI) SignTypedData_v4(ctx context.Context, account common.Address, raw string) (hexutil.Bytes, error) {
	var td apitypes.TypedData
	if err := json.Unmarshal([]byte(raw), &td); err != nil {
		return nil, err
	}
	return a.w.SignTypedDataV4(ctx, account, td)
}

type personalAPI struct{ w *local.Provider }

func (a *personalAPI) Sign(ctx context.Context, message hexutil.Bytes, account common.Address) (hexutil.Bytes, error) {
	return a.w.PersonalSign(ctx, account, message)
}

type walletAPI struct{ w *local.Provider }

func (a *walletAPI) SwitchEthereumChain(ctx context.Context, p switchChainParams) error {
	return a.w.SwitchChain(ctx, uint64(p.ChainID))
}

func (a *walletAPI) AddEthereumChain(ctx context.Context, p addChainParams) error {
	return a.w.AddChain(ctx, wtypes.AddChainParams{
		ChainID:           uint64(p.ChainID),
		ChainName:         p.ChainName,
		RPCURLs:           p.RPCURLs,
		BlockExplorerURLs: p.BlockExplorerURLs,
		NativeCurrency:    p.NativeCurrency,
	})
}

type fixture struct {
	key    *keystore.Wallet
	wallet *local.Provider
	bridge *Bridge
}

func newFixture(t *testing.T, opts ...local.Option) *fixture {
	t.Helper()
	key, err := keystore.NewRandomWallet()
	require.NoError(t, err)
	wallet := local.New(key, testhelper.ChainBSC, opts...)

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &ethAPI{w: wallet}))
	require.NoError(t, server.RegisterName("personal", &personalAPI{w: wallet}))
	require.NoError(t, server.RegisterName("wallet", &walletAPI{w: wallet}))
	t.Cleanup(server.Stop)

	b := New(rpc.DialInProc(server), WithPollInterval(10*time.Millisecond))
	t.Cleanup(b.Close)
	return &fixture{key: key, wallet: wallet, bridge: b}
}

func (f *fixture) watch(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.bridge.Watch(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool {
		f.bridge.mu.Lock()
		defer f.bridge.mu.Unlock()
		return f.bridge.haveState
	}, 5*time.Second, 5*time.Millisecond)
}

func nextEvent(t *testing.T, b *Bridge) wtypes.Event {
	t.Helper()
	select {
	case ev := <-b.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no wallet event")
		return nil
	}
}

func TestSigningOverJSONRPC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	accounts, err := f.bridge.RequestAccounts(ctx)
	require.NoError(t, err)
	require.Equal(t, []common.Address{f.key.Address()}, accounts)

	id, err := f.bridge.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, testhelper.ChainBSC, id)

	msg := signing.OwnershipMessage{Address: f.key.Address(), Statement: signing.DefaultStatement, IssuedAt: time.Now()}
	sig, err := f.bridge.PersonalSign(ctx, f.key.Address(), []byte(msg.Text()))
	require.NoError(t, err)
	got, err := signing.Recover(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, f.key.Address(), got)

	chain, err := testhelper.Registry(t).Lookup(testhelper.ChainBSC)
	require.NoError(t, err)
	permit := signing.NewPermitMessage(chain, signing.PermitRequest{
		Owner:    f.key.Address(),
		Spender:  common.HexToAddress("0x0000000000000000000000000000000000005e11"),
		Value:    big.NewInt(1_000_000),
		Nonce:    big.NewInt(4),
		Deadline: big.NewInt(time.Now().Add(time.Hour).Unix()),
		ChainID:  chain.ChainID,
	})
	sig, err = f.bridge.SignTypedDataV4(ctx, f.key.Address(), permit.TypedData())
	require.NoError(t, err)
	got, err = signing.Recover(permit, sig)
	require.NoError(t, err)
	assert.Equal(t, f.key.Address(), got)
}

func TestProviderErrorCodesSurvive(t *testing.T) {
	f := newFixture(t, local.WithApprover(func(_ context.Context, req local.ApprovalRequest) error {
		if req.Kind == local.KindPersonalSign {
			return local.ErrDeclined
		}
		return nil
	}))
	ctx := context.Background()
	_, err := f.bridge.RequestAccounts(ctx)
	require.NoError(t, err)

	_, err = f.bridge.PersonalSign(ctx, f.key.Address(), []byte("hello"))
	require.ErrorIs(t, err, wtypes.ErrUserRejected)

	err = f.bridge.SwitchChain(ctx, testhelper.ChainPolygon)
	require.ErrorIs(t, err, wtypes.ErrChainUnknownToWallet)
}

func TestEnsureChainThroughBridge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.bridge.RequestAccounts(ctx)
	require.NoError(t, err)
	f.watch(t)

	r := testhelper.Registry(t)
	client, err := chainclient.New(r, testhelper.Pool(t, r, testhelper.Tokens(r)...), f.bridge)
	require.NoError(t, err)

	require.NoError(t, client.EnsureChain(ctx, testhelper.ChainPolygon))
	assert.Equal(t, wtypes.ChainChanged{ChainID: testhelper.ChainPolygon}, nextEvent(t, f.bridge))

	id, err := f.bridge.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, testhelper.ChainPolygon, id)

	// the poller agrees with the switch and stays quiet
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, f.bridge.Events())
}

func TestWatcherReportsWalletSideChanges(t *testing.T) {
	f := newFixture(t)
	_, err := f.bridge.RequestAccounts(context.Background())
	require.NoError(t, err)
	f.watch(t)

	f.wallet.UserSwitchChain(testhelper.ChainBase)
	assert.Equal(t, wtypes.ChainChanged{ChainID: testhelper.ChainBase}, nextEvent(t, f.bridge))

	other, err := keystore.NewRandomWallet()
	require.NoError(t, err)
	f.wallet.UserSwitchAccount(other)
	assert.Equal(t, wtypes.AccountsChanged{Accounts: []common.Address{other.Address()}}, nextEvent(t, f.bridge))

	f.wallet.UserLock()
	assert.Equal(t, wtypes.AccountsChanged{Accounts: []common.Address{}}, nextEvent(t, f.bridge))
}

func TestObserveBaseline(t *testing.T) {
	b := &Bridge{}
	a := common.HexToAddress("0x01")

	assert.Empty(t, b.observe([]common.Address{a}, 56))
	assert.Empty(t, b.observe([]common.Address{a}, 56))
	assert.Equal(t, []wtypes.Event{wtypes.ChainChanged{ChainID: 1}}, b.observe([]common.Address{a}, 1))
	assert.Equal(t, []wtypes.Event{wtypes.AccountsChanged{Accounts: nil}}, b.observe(nil, 1))
}

func TestTransportFailureIsDisconnect(t *testing.T) {
	f := newFixture(t)
	f.bridge.Close()

	_, err := f.bridge.ChainID(context.Background())
	require.ErrorIs(t, err, wtypes.ErrWalletDisconnected)
}

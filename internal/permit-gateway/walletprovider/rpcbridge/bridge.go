// Package rpcbridge reaches an EIP-1193 wallet over JSON-RPC (HTTP or
// WebSocket). Wallets do not push events over plain JSON-RPC, so account and
// chain changes are found by polling eth_accounts and eth_chainId.
package rpcbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

const defaultPollInterval = 2 * time.Second

type Bridge struct {
	client       *rpc.Client
	events       chan wtypes.Event
	pollInterval time.Duration

	mu        sync.Mutex
	accounts  []common.Address
	chainID   uint64
	haveState bool
	closed    bool
}

type Option func(*Bridge)

func WithPollInterval(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.pollInterval = d
		}
	}
}

func WithEventBuffer(n int) Option {
	return func(b *Bridge) { b.events = make(chan wtypes.Event, n) }
}

var _ wtypes.Provider = (*Bridge)(nil)

func Dial(ctx context.Context, url string, opts ...Option) (*Bridge, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial wallet rpc %s", url)
	}
	return New(client, opts...), nil
}

func New(client *rpc.Client, opts ...Option) *Bridge {
	b := &Bridge{
		client:       client,
		events:       make(chan wtypes.Event, 32),
		pollInterval: defaultPollInterval,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Bridge) Events() <-chan wtypes.Event { return b.events }

func (b *Bridge) Close() { b.client.Close() }

func (b *Bridge) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var out []common.Address
	if err := b.call(ctx, &out, "eth_requestAccounts"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.accounts = slices.Clone(out)
	b.mu.Unlock()
	return out, nil
}

func (b *Bridge) Accounts(ctx context.Context) ([]common.Address, error) {
	var out []common.Address
	if err := b.call(ctx, &out, "eth_accounts"); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Bridge) ChainID(ctx context.Context) (uint64, error) {
	var out hexutil.Uint64
	if err := b.call(ctx, &out, "eth_chainId"); err != nil {
		return 0, err
	}
	return uint64(out), nil
}

func (b *Bridge) PersonalSign(ctx context.Context, account common.Address, message []byte) ([]byte, error) {
	var out hexutil.Bytes
	if err := b.call(ctx, &out, "personal_sign", hexutil.Bytes(message), account); err != nil {
		return nil, err
	}
	return out, nil
}

// SignTypedDataV4 sends the typed data as a JSON string, the form wallets
// accept for eth_signTypedData_v4.
func (b *Bridge) SignTypedDataV4(ctx context.Context, account common.Address, typedData apitypes.TypedData) ([]byte, error) {
	raw, err := json.Marshal(typedData)
	if err != nil {
		return nil, errors.Wrap(err, "encode typed data")
	}
	var out hexutil.Bytes
	if err := b.call(ctx, &out, "eth_signTypedData_v4", account, string(raw)); err != nil {
		return nil, err
	}
	return out, nil
}

type switchChainParams struct {
	ChainID hexutil.Uint64 `json:"chainId"`
}

// SwitchChain emits ChainChanged itself on success, the way an injected
// wallet would, so callers see the change without waiting for a poll.
func (b *Bridge) SwitchChain(ctx context.Context, chainID uint64) error {
	if err := b.call(ctx, nil, "wallet_switchEthereumChain", switchChainParams{ChainID: hexutil.Uint64(chainID)}); err != nil {
		return err
	}

	b.mu.Lock()
	changed := b.haveState && b.chainID != chainID
	b.chainID = chainID
	b.mu.Unlock()

	if changed {
		b.emit(wtypes.ChainChanged{ChainID: chainID})
	}
	return nil
}

type addChainParams struct {
	ChainID           hexutil.Uint64        `json:"chainId"`
	ChainName         string                `json:"chainName"`
	RPCURLs           []string              `json:"rpcUrls"`
	BlockExplorerURLs []string              `json:"blockExplorerUrls,omitempty"`
	NativeCurrency    wtypes.NativeCurrency `json:"nativeCurrency"`
}

func (b *Bridge) AddChain(ctx context.Context, params wtypes.AddChainParams) error {
	return b.call(ctx, nil, "wallet_addEthereumChain", addChainParams{
		ChainID:           hexutil.Uint64(params.ChainID),
		ChainName:         params.ChainName,
		RPCURLs:           params.RPCURLs,
		BlockExplorerURLs: params.BlockExplorerURLs,
		NativeCurrency:    params.NativeCurrency,
	})
}

func (b *Bridge) call(ctx context.Context, result any, method string, args ...any) error {
	if err := b.client.CallContext(ctx, result, method, args...); err != nil {
		return providerError(method, err)
	}
	return nil
}

// providerError turns JSON-RPC error objects into *wtypes.ProviderError and
// transport failures into ErrWalletDisconnected.
func providerError(method string, err error) error {
	var rerr rpc.Error
	if errors.As(err, &rerr) {
		return wtypes.NewProviderError(rerr.ErrorCode(), rerr.Error())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, method)
	}
	return fmt.Errorf("%s: %w: %w", method, wtypes.ErrWalletDisconnected, err)
}

func (b *Bridge) emit(ev wtypes.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.events <- ev:
	default:
		log.Warn("wallet event dropped, buffer full", "event", ev)
	}
}

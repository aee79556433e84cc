// Package local is an in-process wallet for development and tests. It holds a
// single key and behaves like an EIP-1193 wallet: requests can be rejected by
// an approver, unknown chains must be added before switching, and account or
// chain changes are pushed on the event channel.
package local

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/constants"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/digest"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

// Signer is the key the wallet signs with. keystore.Wallet satisfies it.
type Signer interface {
	Address() common.Address
	SignHash(ctx context.Context, digest32 []byte) ([]byte, error)
}

type Provider struct {
	approver Approver
	events   chan wtypes.Event

	mu        sync.Mutex
	signer    Signer
	chainID   uint64
	known     map[uint64]bool
	connected bool
}

type Option func(*Provider)

func WithApprover(a Approver) Option {
	return func(p *Provider) { p.approver = a }
}

// WithKnownChains marks chains the wallet can switch to without AddChain.
func WithKnownChains(ids ...uint64) Option {
	return func(p *Provider) {
		for _, id := range ids {
			p.known[id] = true
		}
	}
}

func WithEventBuffer(n int) Option {
	return func(p *Provider) { p.events = make(chan wtypes.Event, n) }
}

func New(signer Signer, chainID uint64, opts ...Option) *Provider {
	p := &Provider{
		approver: AutoApprove,
		events:   make(chan wtypes.Event, 32),
		signer:   signer,
		chainID:  chainID,
		known:    map[uint64]bool{chainID: true},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

var _ wtypes.Provider = (*Provider)(nil)

func (p *Provider) Events() <-chan wtypes.Event { return p.events }

func (p *Provider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	signer := p.signer
	p.mu.Unlock()

	if err := p.approve(ctx, ApprovalRequest{Kind: KindConnect, Account: signer.Address()}); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()
	return []common.Address{signer.Address()}, nil
}

func (p *Provider) Accounts(context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return []common.Address{}, nil
	}
	return []common.Address{p.signer.Address()}, nil
}

func (p *Provider) ChainID(context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainID, nil
}

func (p *Provider) PersonalSign(ctx context.Context, account common.Address, message []byte) ([]byte, error) {
	signer, err := p.signerFor(account)
	if err != nil {
		return nil, err
	}
	if err := p.approve(ctx, ApprovalRequest{Kind: KindPersonalSign, Account: account, Message: message}); err != nil {
		return nil, err
	}
	return sign(ctx, signer, digest.PersonalMessage(message))
}

func (p *Provider) SignTypedDataV4(ctx context.Context, account common.Address, typedData apitypes.TypedData) ([]byte, error) {
	signer, err := p.signerFor(account)
	if err != nil {
		return nil, err
	}

	// wallets refuse typed data whose domain targets another chain
	if typedData.Domain.ChainId != nil {
		p.mu.Lock()
		active := p.chainID
		p.mu.Unlock()
		want := (*big.Int)(typedData.Domain.ChainId)
		if !want.IsUint64() || want.Uint64() != active {
			return nil, wtypes.NewProviderError(constants.RPCCodeInvalidParams,
				"provided chainId "+want.String()+" must match the active chainId")
		}
	}

	d, err := digest.TypedData(typedData)
	if err != nil {
		return nil, wtypes.NewProviderError(constants.RPCCodeInvalidParams, err.Error())
	}

	td := typedData
	if err := p.approve(ctx, ApprovalRequest{Kind: KindTypedData, Account: account, TypedData: &td}); err != nil {
		return nil, err
	}
	return sign(ctx, signer, d)
}

func (p *Provider) SwitchChain(ctx context.Context, chainID uint64) error {
	p.mu.Lock()
	current, known := p.chainID, p.known[chainID]
	p.mu.Unlock()

	if current == chainID {
		return nil
	}
	if !known {
		return wtypes.NewProviderError(constants.ProviderCodeUnknownChain, "Unrecognized chain ID")
	}
	if err := p.approve(ctx, ApprovalRequest{Kind: KindSwitchChain, ChainID: chainID}); err != nil {
		return err
	}

	p.setChain(chainID)
	return nil
}

func (p *Provider) AddChain(ctx context.Context, params wtypes.AddChainParams) error {
	if params.ChainID == 0 || len(params.RPCURLs) == 0 {
		return wtypes.NewProviderError(constants.RPCCodeInvalidParams, "chainId and rpcUrls are required")
	}
	if err := p.approve(ctx, ApprovalRequest{Kind: KindAddChain, ChainID: params.ChainID, AddChain: &params}); err != nil {
		return err
	}

	p.mu.Lock()
	p.known[params.ChainID] = true
	p.mu.Unlock()
	return nil
}

// UserSwitchChain simulates the user picking another network in the wallet UI.
func (p *Provider) UserSwitchChain(chainID uint64) {
	p.mu.Lock()
	p.known[chainID] = true
	p.mu.Unlock()
	p.setChain(chainID)
}

// UserSwitchAccount simulates the user selecting another account.
func (p *Provider) UserSwitchAccount(signer Signer) {
	p.mu.Lock()
	p.signer = signer
	connected := p.connected
	p.mu.Unlock()

	if connected {
		p.emit(wtypes.AccountsChanged{Accounts: []common.Address{signer.Address()}})
	}
}

// UserLock simulates the wallet locking or revoking the site.
func (p *Provider) UserLock() {
	p.mu.Lock()
	wasConnected := p.connected
	p.connected = false
	p.mu.Unlock()

	if wasConnected {
		p.emit(wtypes.AccountsChanged{Accounts: []common.Address{}})
	}
}

func (p *Provider) setChain(chainID uint64) {
	p.mu.Lock()
	changed := p.chainID != chainID
	p.chainID = chainID
	p.mu.Unlock()

	if changed {
		p.emit(wtypes.ChainChanged{ChainID: chainID})
	}
}

func (p *Provider) emit(ev wtypes.Event) {
	select {
	case p.events <- ev:
	default:
		log.Warn("local wallet event dropped, buffer full", "event", ev)
	}
}

func (p *Provider) signerFor(account common.Address) (Signer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		return nil, wtypes.NewProviderError(constants.ProviderCodeUnauthorized, "wallet not connected")
	}
	if account != p.signer.Address() {
		return nil, wtypes.NewProviderError(constants.ProviderCodeUnauthorized, "account not controlled by this wallet")
	}
	return p.signer, nil
}

func (p *Provider) approve(ctx context.Context, req ApprovalRequest) error {
	if p.approver == nil {
		return nil
	}
	if err := p.approver(ctx, req); err != nil {
		return wtypes.NewProviderError(constants.ProviderCodeUserRejected, err.Error())
	}
	return nil
}

func sign(ctx context.Context, signer Signer, d []byte) ([]byte, error) {
	sig, err := signer.SignHash(ctx, d)
	if err != nil {
		return nil, wtypes.NewProviderError(constants.RPCCodeInternal, err.Error())
	}
	// EIP-1193 wallets hand back V=27/28
	return wtypes.NormalizeV(sig, wtypes.VBase27)
}

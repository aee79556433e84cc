// Package testhelper holds in-process fakes shared by package tests.
package testhelper

import (
	"context"
	"math/big"
	"sync"

	"github.com/cockroachdb/errors"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chains"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/contracts/bindings/go/permittoken"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/digest"
)

// FakeToken is a chains.Backend that answers the EIP-2612 view calls of a
// single token contract from memory.
type FakeToken struct {
	Chain    uint64
	Address  common.Address
	Name     string
	Version  string
	Decimals uint8

	mu       sync.Mutex
	balances map[common.Address]*big.Int
	nonces   map[common.Address]*big.Int
	failWith error
	hook     func(method string) error
	calls    map[string]int

	// domain used for DOMAIN_SEPARATOR; differs from Name/Version when the
	// contract is deployed with other metadata than configured.
	domainName    string
	domainVersion string
}

func NewFakeToken(chain chains.ChainConfig) *FakeToken {
	return &FakeToken{
		Chain:         chain.ChainID,
		Address:       chain.Token.Address,
		Name:          chain.Token.PermitName,
		Version:       chain.Token.PermitVersion,
		Decimals:      chain.Token.Decimals,
		balances:      map[common.Address]*big.Int{},
		nonces:        map[common.Address]*big.Int{},
		calls:         map[string]int{},
		domainName:    chain.Token.PermitName,
		domainVersion: chain.Token.PermitVersion,
	}
}

func (f *FakeToken) SetBalance(owner common.Address, v *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[owner] = new(big.Int).Set(v)
}

func (f *FakeToken) SetNonce(owner common.Address, v uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonces[owner] = new(big.Int).SetUint64(v)
}

// SetDeployedDomain changes the name/version the on-chain domain separator is
// built from.
func (f *FakeToken) SetDeployedDomain(name, version string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domainName = name
	f.domainVersion = version
}

// FailWith makes every call fail with err (nil clears).
func (f *FakeToken) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

// OnCall installs a hook run before each answered call. A non-nil error from
// the hook is returned to the caller. Hooks may block.
func (f *FakeToken) OnCall(h func(method string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = h
}

func (f *FakeToken) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *FakeToken) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *FakeToken) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).SetUint64(f.Chain), nil
}

func (f *FakeToken) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if call.To == nil || *call.To != f.Address {
		return nil, errors.Newf("fake token %s: call to unknown contract %v", f.Address.Hex(), call.To)
	}
	if len(call.Data) < 4 {
		return nil, errors.New("fake token: short calldata")
	}

	parsed, err := permittoken.PermitTokenMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	method, err := parsed.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls[method.RawName]++
	hook, failWith := f.hook, f.failWith
	f.mu.Unlock()

	if hook != nil {
		if err := hook(method.RawName); err != nil {
			return nil, err
		}
	}
	if failWith != nil {
		return nil, failWith
	}

	out, err := f.answer(method.RawName, args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

func (f *FakeToken) answer(method string, args []interface{}) ([]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch method {
	case "balanceOf":
		owner := args[0].(common.Address)
		return []interface{}{valueOrZero(f.balances[owner])}, nil
	case "nonces":
		owner := args[0].(common.Address)
		return []interface{}{valueOrZero(f.nonces[owner])}, nil
	case "decimals":
		return []interface{}{f.Decimals}, nil
	case "name":
		return []interface{}{f.domainName}, nil
	case "version":
		return []interface{}{f.domainVersion}, nil
	case "symbol":
		return []interface{}{"TKN"}, nil
	case "DOMAIN_SEPARATOR":
		sep, err := digest.DomainSeparatorFor(digest.Domain(f.domainName, f.domainVersion, f.Chain, f.Address))
		if err != nil {
			return nil, err
		}
		return []interface{}{sep}, nil
	}
	return nil, errors.Newf("fake token: unhandled method %s", method)
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Dialer returns a chains.Dialer serving the given tokens by chain id.
func Dialer(tokens ...*FakeToken) chains.Dialer {
	byID := make(map[uint64]*FakeToken, len(tokens))
	for _, t := range tokens {
		byID[t.Chain] = t
	}
	return func(_ context.Context, c chains.ChainConfig) (chains.Backend, error) {
		t, ok := byID[c.ChainID]
		if !ok {
			return nil, errors.Newf("no fake backend for chain %d", c.ChainID)
		}
		return t, nil
	}
}

package wtypes

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Provider is the wallet capability handed to a session at construction.
// It mirrors the EIP-1193 surface the session needs and nothing more.
//   - PersonalSign returns a 65-byte signature over the EIP-191 hash of message.
//   - SignTypedDataV4 returns a 65-byte signature over the EIP-712 digest.
//   - Errors coming from the wallet should be *ProviderError so callers can
//     match them against the sentinels in errors.go.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (uint64, error)
	PersonalSign(ctx context.Context, account common.Address, message []byte) ([]byte, error)
	SignTypedDataV4(ctx context.Context, account common.Address, typedData apitypes.TypedData) ([]byte, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	AddChain(ctx context.Context, params AddChainParams) error

	// Events is the single inbound channel for account and chain changes.
	Events() <-chan Event
}

// Event is either AccountsChanged or ChainChanged.
type Event interface {
	isEvent()
}

// AccountsChanged carries the wallet's new account list. Empty means the
// wallet locked or revoked access.
type AccountsChanged struct {
	Accounts []common.Address
}

// ChainChanged carries the wallet's new active chain.
type ChainChanged struct {
	ChainID uint64
}

func (AccountsChanged) isEvent() {}
func (ChainChanged) isEvent()    {}

type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// AddChainParams follows wallet_addEthereumChain (EIP-3085).
type AddChainParams struct {
	ChainID           uint64
	ChainName         string
	RPCURLs           []string
	BlockExplorerURLs []string
	NativeCurrency    NativeCurrency
}

package wtypes

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/constants"
)

var (
	ErrConnectionFailed     = errors.New("wallet connection failed")
	ErrChainSwitchRejected  = errors.New("chain switch rejected")
	ErrChainUnknownToWallet = errors.New("chain unknown to wallet")
	ErrUnsupportedChain     = errors.New("unsupported chain")
	ErrRPC                  = errors.New("rpc error")
	ErrUserRejected         = errors.New("user rejected request")
	ErrWalletDisconnected   = errors.New("wallet disconnected")
	ErrInvalidDeadline      = errors.New("invalid deadline")
	ErrStaleResult          = errors.New("stale result")

	ErrChainMismatch     = errors.New("wallet is not on the required chain")
	ErrInvalidState      = errors.New("operation not allowed in current session state")
	ErrUnlimitedApproval = errors.New("unlimited approval not allowed")
	ErrDomainMismatch    = errors.New("eip-712 domain does not match token contract")
	ErrInvalidValue      = errors.New("invalid permit value")
)

// ChainError is a failure scoped to a single chain. It matches both Kind and
// the underlying cause with errors.Is.
type ChainError struct {
	ChainID uint64
	Kind    error
	Err     error
}

func NewChainError(chainID uint64, kind, err error) *ChainError {
	return &ChainError{ChainID: chainID, Kind: kind, Err: err}
}

func (e *ChainError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("chain %d: %v", e.ChainID, e.Kind)
	}
	return fmt.Sprintf("chain %d: %v: %v", e.ChainID, e.Kind, e.Err)
}

func (e *ChainError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// ProviderError is an EIP-1193 error returned by the wallet.
type ProviderError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewProviderError(code int, msg string) *ProviderError {
	return &ProviderError{Code: code, Message: msg}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("wallet error %d: %s", e.Code, e.Message)
}

func (e *ProviderError) ErrorCode() int { return e.Code }

func (e *ProviderError) Is(target error) bool {
	switch e.Code {
	case constants.ProviderCodeUserRejected:
		return target == ErrUserRejected
	case constants.ProviderCodeUnknownChain:
		return target == ErrChainUnknownToWallet
	case constants.ProviderCodeDisconnected, constants.ProviderCodeChainNotLinked:
		return target == ErrWalletDisconnected
	}
	return false
}

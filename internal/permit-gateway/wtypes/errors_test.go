package wtypes

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderErrorMatchesSentinels(t *testing.T) {
	assert.ErrorIs(t, NewProviderError(4001, "User rejected the request."), ErrUserRejected)
	assert.ErrorIs(t, NewProviderError(4902, "Unrecognized chain ID"), ErrChainUnknownToWallet)
	assert.ErrorIs(t, NewProviderError(4900, "disconnected"), ErrWalletDisconnected)
	assert.ErrorIs(t, NewProviderError(4901, "chain disconnected"), ErrWalletDisconnected)

	other := NewProviderError(-32603, "internal")
	assert.NotErrorIs(t, other, ErrUserRejected)
	assert.NotErrorIs(t, other, ErrChainUnknownToWallet)
}

func TestProviderErrorThroughWrap(t *testing.T) {
	err := errors.Wrap(NewProviderError(4001, "nope"), "personal_sign")
	assert.ErrorIs(t, err, ErrUserRejected)
	assert.True(t, errors.Is(err, ErrUserRejected))
}

func TestChainErrorUnwrapsKindAndCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewChainError(56, ErrRPC, cause)

	assert.ErrorIs(t, err, ErrRPC)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUnsupportedChain)
	assert.Contains(t, err.Error(), "chain 56")

	var ce *ChainError
	require.ErrorAs(t, errors.Wrap(err, "refresh"), &ce)
	assert.Equal(t, uint64(56), ce.ChainID)
}

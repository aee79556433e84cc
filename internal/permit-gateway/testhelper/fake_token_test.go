package testhelper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/contracts/bindings/go/permittoken"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/digest"
)

func TestFakeTokenServesItsChain(t *testing.T) {
	r := Registry(t)
	tokens := Tokens(r)
	require.Len(t, tokens, 3)

	ctx := context.Background()
	for _, chain := range r.ListChains() {
		backend, err := Dialer(tokens...)(ctx, chain)
		require.NoError(t, err)

		id, err := backend.ChainID(ctx)
		require.NoError(t, err)
		assert.Equal(t, chain.ChainID, id.Uint64())

		tok, err := permittoken.NewPermitToken(chain.Token.Address, backend)
		require.NoError(t, err)
		sep, err := tok.DOMAINSEPARATOR(nil)
		require.NoError(t, err)
		want, err := digest.DomainSeparatorFor(digest.Domain(chain.Token.PermitName, chain.Token.PermitVersion, chain.ChainID, chain.Token.Address))
		require.NoError(t, err)
		assert.Equal(t, want, sep)
	}

	unknown := r.ListChains()[0]
	unknown.ChainID = 1
	_, err := Dialer(tokens...)(ctx, unknown)
	require.Error(t, err)
	assert.Equal(t, ChainBSC, tokens[0].Chain)
}

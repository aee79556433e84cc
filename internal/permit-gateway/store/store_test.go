package store

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/signing"
)

var (
	owner   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	spender = common.HexToAddress("0x0000000000000000000000000000000000005e11")
	token   = common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sig(b byte) []byte {
	out := make([]byte, 65)
	for i := range out {
		out[i] = b
	}
	out[64] = 27
	return out
}

func record(at time.Time) signing.VerificationRecord {
	return signing.VerificationRecord{
		Address:   owner,
		Message:   "I confirm that I control this wallet address.\n\nAddress: " + owner.Hex(),
		Signature: sig(0x11),
		CreatedAt: at,
	}
}

func permit(chainID, nonce uint64) signing.PermitResult {
	return signing.PermitResult{
		Request: signing.PermitRequest{
			Owner:    owner,
			Spender:  spender,
			Value:    new(big.Int).Lsh(big.NewInt(1), 200),
			Nonce:    new(big.Int).SetUint64(nonce),
			Deadline: big.NewInt(1_900_000_000),
			ChainID:  chainID,
		},
		Signature:    sig(byte(chainID)),
		TokenAddress: token,
	}
}

func TestSaveAndReadBack(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveAuthorization(ctx, "user-1", record(at), []signing.PermitResult{permit(137, 0), permit(56, 3)}))

	got, err := s.LatestVerification(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, owner, got.Address)
	assert.Equal(t, record(at).Message, got.Message)
	assert.Equal(t, record(at).Signature, got.Signature)
	assert.True(t, at.Equal(got.CreatedAt))

	permits, err := s.ListPermits(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, permits, 2)
	assert.Equal(t, uint64(56), permits[0].Request.ChainID)
	assert.Equal(t, uint64(137), permits[1].Request.ChainID)
	assert.Equal(t, permit(56, 3), permits[0])
}

func TestSaveReplacesPermitsPerChain(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveAuthorization(ctx, "user-1", record(at), []signing.PermitResult{permit(56, 0), permit(137, 0)}))
	require.NoError(t, s.SaveAuthorization(ctx, "user-1", record(at.Add(time.Minute)), []signing.PermitResult{permit(56, 1)}))

	permits, err := s.ListPermits(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, permits, 2)
	assert.Equal(t, int64(1), permits[0].Request.Nonce.Int64())
	assert.Equal(t, int64(0), permits[1].Request.Nonce.Int64())

	got, err := s.LatestVerification(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, at.Add(time.Minute).Equal(got.CreatedAt))
}

func TestPrincipalsAreIsolated(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAuthorization(ctx, "user-1", record(time.Now()), []signing.PermitResult{permit(56, 0)}))

	_, err := s.LatestVerification(ctx, "user-2")
	require.ErrorIs(t, err, ErrNotFound)

	permits, err := s.ListPermits(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, permits)
}

func TestSaveWithoutPermits(t *testing.T) {
	s := setupStore(t)
	require.NoError(t, s.SaveAuthorization(context.Background(), "user-1", record(time.Now()), nil))
	require.Error(t, s.SaveAuthorization(context.Background(), "  ", record(time.Now()), nil))
}

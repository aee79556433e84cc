package signing_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chainclient"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chains"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/ethwallet/keystore"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/signing"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/testhelper"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/walletprovider/local"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

var (
	spender = common.HexToAddress("0x0000000000000000000000000000000000005e11")
	fixedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

type SigningSuite struct {
	suite.Suite

	registry *chains.Registry
	tokens   []*testhelper.FakeToken
	key      *keystore.Wallet
	wallet   *local.Provider
	reader   *chainclient.Client
	reject   local.RequestKind
}

func TestSigningSuite(t *testing.T) {
	suite.Run(t, new(SigningSuite))
}

func (s *SigningSuite) SetupTest() {
	s.registry = testhelper.Registry(s.T())
	s.tokens = testhelper.Tokens(s.registry)

	key, err := keystore.NewRandomWallet()
	s.Require().NoError(err)
	s.key = key
	s.reject = ""

	s.wallet = local.New(key, testhelper.ChainBSC,
		local.WithKnownChains(testhelper.ChainPolygon, testhelper.ChainBase),
		local.WithApprover(func(_ context.Context, req local.ApprovalRequest) error {
			if req.Kind == s.reject {
				return local.ErrDeclined
			}
			return nil
		}))
	_, err = s.wallet.RequestAccounts(context.Background())
	s.Require().NoError(err)

	s.reader, err = chainclient.New(s.registry, testhelper.Pool(s.T(), s.registry, s.tokens...), s.wallet)
	s.Require().NoError(err)
}

func (s *SigningSuite) service(cfg signing.Config) *signing.Service {
	svc, err := signing.NewService(s.wallet, s.reader, cfg, signing.WithClock(func() time.Time { return fixedAt }))
	s.Require().NoError(err)
	return svc
}

func (s *SigningSuite) chain(id uint64) chains.ChainConfig {
	c, err := s.registry.Lookup(id)
	s.Require().NoError(err)
	return c
}

func (s *SigningSuite) deadline(d time.Duration) *big.Int {
	return big.NewInt(fixedAt.Add(d).Unix())
}

func (s *SigningSuite) TestSignOwnershipRoundTrip() {
	svc := s.service(signing.Config{Statement: "Prove it."})

	rec, err := svc.SignOwnership(context.Background(), s.key.Address())
	s.Require().NoError(err)
	s.Equal(s.key.Address(), rec.Address)
	s.Equal(fixedAt, rec.CreatedAt)
	s.Contains(rec.Message, "Prove it.")
	s.Contains(rec.Message, "2026-03-01T12:00:00Z")
	s.NoError(signing.VerifyOwnership(rec))

	tampered := rec
	tampered.Message = rec.Message + " "
	s.ErrorIs(signing.VerifyOwnership(tampered), signing.ErrSignerMismatch)

	other := rec
	other.Address = spender
	s.ErrorIs(signing.VerifyOwnership(other), signing.ErrSignerMismatch)
}

func (s *SigningSuite) TestSignOwnershipRejected() {
	s.reject = local.KindPersonalSign
	_, err := s.service(signing.Config{}).SignOwnership(context.Background(), s.key.Address())
	s.ErrorIs(err, wtypes.ErrUserRejected)
}

func (s *SigningSuite) TestPermitRecoversOnlyUnderItsOwnDomain() {
	ctx := context.Background()
	bsc := s.chain(testhelper.ChainBSC)
	s.tokens[0].SetNonce(s.key.Address(), 7)

	res, err := s.service(signing.Config{}).SignPermit(ctx, bsc, s.key.Address(), spender, big.NewInt(1000), s.deadline(time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(7), res.Request.Nonce.Int64())
	s.Equal(bsc.Token.Address, res.TokenAddress)

	got, err := signing.Recover(signing.NewPermitMessage(bsc, res.Request), res.Signature)
	s.Require().NoError(err)
	s.Equal(s.key.Address(), got)

	// same request, other chain's domain
	polygon := s.chain(testhelper.ChainPolygon)
	got, err = signing.Recover(signing.NewPermitMessage(polygon, res.Request), res.Signature)
	s.Require().NoError(err)
	s.NotEqual(s.key.Address(), got)

	v, r, sv := res.VRS()
	s.Contains([]uint8{27, 28}, v)
	s.NotEqual([32]byte{}, r)
	s.NotEqual([32]byte{}, sv)
}

func (s *SigningSuite) TestPermitDeadlinePolicy() {
	ctx := context.Background()
	bsc := s.chain(testhelper.ChainBSC)
	svc := s.service(signing.Config{})

	_, err := svc.SignPermit(ctx, bsc, s.key.Address(), spender, big.NewInt(1), s.deadline(-time.Second))
	s.ErrorIs(err, wtypes.ErrInvalidDeadline)
	s.Zero(s.tokens[0].Calls("nonces"), "nothing is read for an invalid request")

	_, err = svc.SignPermit(ctx, bsc, s.key.Address(), spender, big.NewInt(1), s.deadline(0))
	s.NoError(err, "a deadline equal to now is still valid")

	_, err = svc.SignPermit(ctx, bsc, s.key.Address(), spender, big.NewInt(1), s.deadline(time.Hour))
	s.NoError(err)
}

func (s *SigningSuite) TestPermitValuePolicy() {
	ctx := context.Background()
	bsc := s.chain(testhelper.ChainBSC)
	unlimited := signing.MaxUint256().ToBig()
	farFuture := s.deadline(100 * 365 * 24 * time.Hour)

	_, err := s.service(signing.Config{}).SignPermit(ctx, bsc, s.key.Address(), spender, unlimited, farFuture)
	s.ErrorIs(err, wtypes.ErrUnlimitedApproval)

	res, err := s.service(signing.Config{AllowUnlimited: true}).SignPermit(ctx, bsc, s.key.Address(), spender, unlimited, farFuture)
	s.Require().NoError(err)
	s.Equal(0, unlimited.Cmp(res.Request.Value))

	_, err = s.service(signing.Config{}).SignPermit(ctx, bsc, s.key.Address(), spender, big.NewInt(-1), farFuture)
	s.ErrorIs(err, wtypes.ErrInvalidValue)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = s.service(signing.Config{AllowUnlimited: true}).SignPermit(ctx, bsc, s.key.Address(), spender, tooBig, farFuture)
	s.ErrorIs(err, wtypes.ErrInvalidValue)
}

func (s *SigningSuite) TestPermitDomainMismatch() {
	s.tokens[0].SetDeployedDomain("Tether USD", "2")

	_, err := s.service(signing.Config{}).SignPermit(context.Background(), s.chain(testhelper.ChainBSC),
		s.key.Address(), spender, big.NewInt(1), s.deadline(time.Hour))
	s.ErrorIs(err, wtypes.ErrDomainMismatch)
}

func (s *SigningSuite) TestPermitRejectedAndRPCFailure() {
	ctx := context.Background()
	bsc := s.chain(testhelper.ChainBSC)

	s.reject = local.KindTypedData
	_, err := s.service(signing.Config{}).SignPermit(ctx, bsc, s.key.Address(), spender, big.NewInt(1), s.deadline(time.Hour))
	s.ErrorIs(err, wtypes.ErrUserRejected)

	s.reject = ""
	polygon := s.chain(testhelper.ChainPolygon)
	s.tokens[1].FailWith(assert.AnError)
	_, err = s.service(signing.Config{}).SignPermit(ctx, polygon, s.key.Address(), spender, big.NewInt(1), s.deadline(time.Hour))
	s.ErrorIs(err, wtypes.ErrRPC)
}

func (s *SigningSuite) TestPermitNonceIsRefetched() {
	ctx := context.Background()
	bsc := s.chain(testhelper.ChainBSC)
	svc := s.service(signing.Config{})

	first, err := svc.SignPermit(ctx, bsc, s.key.Address(), spender, big.NewInt(1), s.deadline(time.Hour))
	s.Require().NoError(err)

	s.tokens[0].SetNonce(s.key.Address(), 1)
	second, err := svc.SignPermit(ctx, bsc, s.key.Address(), spender, big.NewInt(1), s.deadline(time.Hour))
	s.Require().NoError(err)

	s.Equal(int64(0), first.Request.Nonce.Int64())
	s.Equal(int64(1), second.Request.Nonce.Int64())
	s.NotEqual(first.Signature, second.Signature)
}

func TestOwnershipMessageText(t *testing.T) {
	msg := signing.OwnershipMessage{
		Address:   common.HexToAddress("0xAbCdEf0000000000000000000000000000000001"),
		Statement: "  Sign in.  ",
		IssuedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600)),
	}
	assert.Equal(t,
		"Sign in.\n\nAddress: 0xabcdef0000000000000000000000000000000001\nIssued At: 2026-01-02T02:04:05Z",
		msg.Text())

	d, err := msg.Digest()
	require.NoError(t, err)
	assert.Len(t, d, 32)
}

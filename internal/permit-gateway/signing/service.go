// Package signing builds the messages a wallet signs during verification:
// the ownership proof and one EIP-2612 permit per chain.
package signing

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/holiman/uint256"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chains"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

const DefaultStatement = "I confirm that I control this wallet address."

// Wallet is the part of wtypes.Provider the service signs through.
type Wallet interface {
	PersonalSign(ctx context.Context, account common.Address, message []byte) ([]byte, error)
	SignTypedDataV4(ctx context.Context, account common.Address, typedData apitypes.TypedData) ([]byte, error)
}

// ChainReader reads permit state from the token contract. *chainclient.Client
// satisfies it.
type ChainReader interface {
	GetNonce(ctx context.Context, chain chains.ChainConfig, owner common.Address) (*big.Int, error)
	GetDomainSeparator(ctx context.Context, chain chains.ChainConfig) ([32]byte, error)
}

type Config struct {
	Statement      string
	AllowUnlimited bool
}

type Service struct {
	wallet Wallet
	reader ChainReader
	cfg    Config
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(wallet Wallet, reader ChainReader, cfg Config, opts ...Option) (*Service, error) {
	if wallet == nil {
		return nil, errors.New("signing: wallet is nil")
	}
	if reader == nil {
		return nil, errors.New("signing: chain reader is nil")
	}
	if cfg.Statement == "" {
		cfg.Statement = DefaultStatement
	}
	s := &Service{wallet: wallet, reader: reader, cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// SignOwnership asks the wallet to personal_sign the ownership message.
func (s *Service) SignOwnership(ctx context.Context, address common.Address) (VerificationRecord, error) {
	msg := OwnershipMessage{
		Address:   address,
		Statement: s.cfg.Statement,
		IssuedAt:  s.now().UTC().Truncate(time.Second),
	}
	text := msg.Text()

	sig, err := s.wallet.PersonalSign(ctx, address, []byte(text))
	if err != nil {
		return VerificationRecord{}, walletError("personal_sign", err)
	}

	got, err := Recover(msg, sig)
	if err != nil {
		return VerificationRecord{}, errors.Wrap(err, "ownership signature")
	}
	if got != address {
		return VerificationRecord{}, errors.Wrapf(ErrSignerMismatch, "recovered %s, want %s", got.Hex(), address.Hex())
	}

	return VerificationRecord{
		Address:   address,
		Message:   text,
		Signature: sig,
		CreatedAt: msg.IssuedAt,
	}, nil
}

// SignPermit builds and signs an EIP-2612 permit for chain. The nonce and the
// on-chain domain separator are read right before signing; a nonce consumed
// between the read and the signature makes the permit unusable, which is
// accepted.
func (s *Service) SignPermit(
	ctx context.Context,
	chain chains.ChainConfig,
	owner, spender common.Address,
	value, deadline *big.Int,
) (PermitResult, error) {
	if err := s.checkDeadline(deadline); err != nil {
		return PermitResult{}, wtypes.NewChainError(chain.ChainID, wtypes.ErrInvalidDeadline, err)
	}
	if err := s.checkValue(value); err != nil {
		return PermitResult{}, wtypes.NewChainError(chain.ChainID, err, nil)
	}

	nonce, err := s.reader.GetNonce(ctx, chain, owner)
	if err != nil {
		return PermitResult{}, err
	}
	onchain, err := s.reader.GetDomainSeparator(ctx, chain)
	if err != nil {
		return PermitResult{}, err
	}

	msg := NewPermitMessage(chain, PermitRequest{
		Owner:    owner,
		Spender:  spender,
		Value:    new(big.Int).Set(value),
		Nonce:    nonce,
		Deadline: new(big.Int).Set(deadline),
		ChainID:  chain.ChainID,
	})

	local, err := msg.DomainSeparator()
	if err != nil {
		return PermitResult{}, wtypes.NewChainError(chain.ChainID, wtypes.ErrDomainMismatch, err)
	}
	if local != onchain {
		log.Error("permit domain mismatch",
			"chainId", chain.ChainID, "permitName", chain.Token.PermitName, "permitVersion", chain.Token.PermitVersion,
			"local", common.Hash(local).Hex(), "onchain", common.Hash(onchain).Hex())
		return PermitResult{}, wtypes.NewChainError(chain.ChainID, wtypes.ErrDomainMismatch,
			errors.Newf("name %q version %q", chain.Token.PermitName, chain.Token.PermitVersion))
	}

	sig, err := s.wallet.SignTypedDataV4(ctx, owner, msg.TypedData())
	if err != nil {
		return PermitResult{}, wtypes.NewChainError(chain.ChainID, walletKind(err), err)
	}

	got, err := Recover(msg, sig)
	if err != nil {
		return PermitResult{}, wtypes.NewChainError(chain.ChainID, ErrSignerMismatch, err)
	}
	if got != owner {
		return PermitResult{}, wtypes.NewChainError(chain.ChainID, ErrSignerMismatch,
			errors.Newf("recovered %s, want %s", got.Hex(), owner.Hex()))
	}

	return PermitResult{
		Request:      msg.Request,
		Signature:    sig,
		TokenAddress: chain.Token.Address,
	}, nil
}

func (s *Service) checkDeadline(deadline *big.Int) error {
	if deadline == nil || deadline.Sign() < 0 {
		return errors.New("deadline must be a non-negative unix timestamp")
	}
	if _, overflow := uint256.FromBig(deadline); overflow {
		return errors.New("deadline does not fit in uint256")
	}
	now := big.NewInt(s.now().Unix())
	if deadline.Cmp(now) < 0 {
		return errors.Newf("deadline %s is before now (%s)", deadline, now)
	}
	return nil
}

func (s *Service) checkValue(value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return wtypes.ErrInvalidValue
	}
	v, overflow := uint256.FromBig(value)
	if overflow {
		return wtypes.ErrInvalidValue
	}
	if IsUnlimited(v) && !s.cfg.AllowUnlimited {
		return wtypes.ErrUnlimitedApproval
	}
	return nil
}

// IsUnlimited reports whether v is the MaxUint256 "infinite approval".
func IsUnlimited(v *uint256.Int) bool {
	return v.Eq(MaxUint256())
}

func MaxUint256() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

// walletError keeps the EIP-1193 classification and treats anything the
// wallet did not classify as a lost connection.
func walletError(op string, err error) error {
	if errors.Is(err, wtypes.ErrUserRejected) || errors.Is(err, wtypes.ErrWalletDisconnected) {
		return errors.Wrap(err, op)
	}
	return fmt.Errorf("%s: %w: %w", op, wtypes.ErrWalletDisconnected, err)
}

func walletKind(err error) error {
	switch {
	case errors.Is(err, wtypes.ErrUserRejected):
		return wtypes.ErrUserRejected
	case errors.Is(err, wtypes.ErrWalletDisconnected):
		return wtypes.ErrWalletDisconnected
	default:
		return wtypes.ErrRPC
	}
}

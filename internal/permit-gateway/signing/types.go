package signing

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

var ErrSignerMismatch = errors.New("signature was not produced by the expected address")

// VerificationRecord is a proof that Address controlled its key at CreatedAt.
type VerificationRecord struct {
	Address   common.Address `json:"address"`
	Message   string         `json:"message"`
	Signature hexutil.Bytes  `json:"signature"`
	CreatedAt time.Time      `json:"createdAt"`
}

// PermitResult is a signed permit ready to be submitted by the spender.
type PermitResult struct {
	Request      PermitRequest  `json:"request"`
	Signature    hexutil.Bytes  `json:"signature"`
	TokenAddress common.Address `json:"tokenAddress"`
}

// VRS splits the signature the way permit(owner, spender, value, deadline,
// v, r, s) expects it.
func (p PermitResult) VRS() (v uint8, r, s [32]byte) {
	sig, err := wtypes.NormalizeV(p.Signature, wtypes.VBase27)
	if err != nil {
		return 0, r, s
	}
	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])
	return sig[64], r, s
}

// VerifyOwnership checks that record.Signature recovers to record.Address and
// that the signed text names that address.
func VerifyOwnership(record VerificationRecord) error {
	if !strings.Contains(strings.ToLower(record.Message), strings.ToLower(record.Address.Hex())) {
		return errors.Wrap(ErrSignerMismatch, "message does not name the address")
	}
	got, err := Recover(PersonalText(record.Message), record.Signature)
	if err != nil {
		return err
	}
	if got != record.Address {
		return errors.Wrapf(ErrSignerMismatch, "recovered %s, want %s", got.Hex(), record.Address.Hex())
	}
	return nil
}

package wtypes

import "github.com/cockroachdb/errors"

// Recovery id offsets for the V byte of a 65-byte R || S || V signature.
const (
	VBase0  byte = 0  // crypto.Sign / crypto.SigToPub
	VBase27 byte = 27 // EIP-1193 wallets, permit(v, r, s)
)

func EnsureDigest32(d []byte) error {
	if len(d) != 32 {
		return errors.Newf("digest must be 32 bytes, got %d", len(d))
	}
	return nil
}

// NormalizeV returns a copy of sig with V rebased onto base. Either
// convention is accepted on input.
func NormalizeV(sig []byte, base byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, errors.Newf("signature must be 65 bytes, got %d", len(sig))
	}
	v := sig[64]
	if v >= VBase27 {
		v -= VBase27
	}
	if v > 1 {
		return nil, errors.Newf("unexpected v value %d", sig[64])
	}
	out := append([]byte(nil), sig...)
	out[64] = base + v
	return out, nil
}

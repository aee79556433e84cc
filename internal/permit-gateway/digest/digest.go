// Package digest holds the hashing rules wallets sign over: EIP-191
// personal messages and EIP-712 v4 typed data.
package digest

import (
	"fmt"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const EIP712DomainType = "EIP712Domain"

// DomainTypes is the full EIP712Domain used by EIP-2612 tokens.
var DomainTypes = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

func Domain(name, version string, chainID uint64, contract common.Address) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              name,
		Version:           version,
		ChainId:           (*math.HexOrDecimal256)(new(big.Int).SetUint64(chainID)),
		VerifyingContract: contract.Hex(),
	}
}

// DomainSeparatorFor hashes a bare domain without any message types.
func DomainSeparatorFor(domain apitypes.TypedDataDomain) ([32]byte, error) {
	return DomainSeparator(apitypes.TypedData{
		Types:  apitypes.Types{EIP712DomainType: DomainTypes},
		Domain: domain,
	})
}

// PersonalMessage returns keccak256("\x19Ethereum Signed Message:\n" + len(msg) + msg).
func PersonalMessage(msg []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(msg))
	return crypto.Keccak256([]byte(prefix), msg)
}

func DomainSeparator(td apitypes.TypedData) ([32]byte, error) {
	var out [32]byte
	h, err := td.HashStruct(EIP712DomainType, td.Domain.Map())
	if err != nil {
		return out, errors.Wrap(err, "domain hash")
	}
	copy(out[:], h)
	return out, nil
}

// TypedData returns the EIP-712 v4 digest:
// keccak256("\x19\x01" || domainSeparator || hashStruct(message)).
func TypedData(td apitypes.TypedData) ([]byte, error) {
	domainSeparator, err := DomainSeparator(td)
	if err != nil {
		return nil, err
	}

	msgHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return nil, errors.Wrap(err, "message hash")
	}

	d := crypto.Keccak256(
		[]byte{0x19, 0x01},
		domainSeparator[:],
		msgHash,
	)
	if len(d) != 32 {
		return nil, errors.Newf("unexpected digest length %d", len(d))
	}
	return d, nil
}

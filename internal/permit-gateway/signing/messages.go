package signing

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chains"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/digest"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

const PermitPrimaryType = "Permit"

var permitTypes = []apitypes.Type{
	{Name: "owner", Type: "address"},
	{Name: "spender", Type: "address"},
	{Name: "value", Type: "uint256"},
	{Name: "nonce", Type: "uint256"},
	{Name: "deadline", Type: "uint256"},
}

// Message is something a wallet signs. The variants are OwnershipMessage
// and PermitMessage.
type Message interface {
	Digest() ([]byte, error)
	isMessage()
}

// OwnershipMessage is the EIP-191 proof-of-control text.
type OwnershipMessage struct {
	Address   common.Address
	Statement string
	IssuedAt  time.Time
}

func (OwnershipMessage) isMessage() {}

// Text is the exact string handed to personal_sign.
func (m OwnershipMessage) Text() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(m.Statement))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Address: %s\n", strings.ToLower(m.Address.Hex()))
	fmt.Fprintf(&b, "Issued At: %s", m.IssuedAt.UTC().Format(time.RFC3339))
	return b.String()
}

func (m OwnershipMessage) Digest() ([]byte, error) {
	return digest.PersonalMessage([]byte(m.Text())), nil
}

// PersonalText is an arbitrary already-rendered personal_sign payload, used
// when verifying a stored record.
type PersonalText string

func (PersonalText) isMessage() {}

func (m PersonalText) Digest() ([]byte, error) {
	return digest.PersonalMessage([]byte(m)), nil
}

// PermitRequest is one EIP-2612 approval, built fresh for every attempt.
type PermitRequest struct {
	Owner    common.Address `json:"owner"`
	Spender  common.Address `json:"spender"`
	Value    *big.Int       `json:"value"`
	Nonce    *big.Int       `json:"nonce"`
	Deadline *big.Int       `json:"deadline"`
	ChainID  uint64         `json:"chainId"`
}

// PermitMessage binds a request to one token's EIP-712 domain.
type PermitMessage struct {
	ChainID       uint64
	Token         common.Address
	PermitName    string
	PermitVersion string
	Request       PermitRequest
}

func (PermitMessage) isMessage() {}

func NewPermitMessage(chain chains.ChainConfig, req PermitRequest) PermitMessage {
	return PermitMessage{
		ChainID:       chain.ChainID,
		Token:         chain.Token.Address,
		PermitName:    chain.Token.PermitName,
		PermitVersion: chain.Token.PermitVersion,
		Request:       req,
	}
}

func (m PermitMessage) TypedData() apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			digest.EIP712DomainType: digest.DomainTypes,
			PermitPrimaryType:       permitTypes,
		},
		PrimaryType: PermitPrimaryType,
		Domain:      digest.Domain(m.PermitName, m.PermitVersion, m.ChainID, m.Token),
		Message: apitypes.TypedDataMessage{
			"owner":    m.Request.Owner.Hex(),
			"spender":  m.Request.Spender.Hex(),
			"value":    bigString(m.Request.Value),
			"nonce":    bigString(m.Request.Nonce),
			"deadline": bigString(m.Request.Deadline),
		},
	}
}

func (m PermitMessage) DomainSeparator() ([32]byte, error) {
	return digest.DomainSeparator(m.TypedData())
}

func (m PermitMessage) Digest() ([]byte, error) {
	return digest.TypedData(m.TypedData())
}

// Recover returns the address that produced sig over msg. V may be 0/1 or
// 27/28.
func Recover(msg Message, sig []byte) (common.Address, error) {
	d, err := msg.Digest()
	if err != nil {
		return common.Address{}, err
	}
	if err := wtypes.EnsureDigest32(d); err != nil {
		return common.Address{}, err
	}
	sig01, err := wtypes.NormalizeV(sig, wtypes.VBase0)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := crypto.SigToPub(d, sig01)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "recover public key")
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

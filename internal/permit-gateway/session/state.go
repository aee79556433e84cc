package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/balances"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/signing"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateVerifying
	StateVerified
	StateGeneratingPermits
	StateReady
)

var stateNames = map[State]string{
	StateDisconnected:      "disconnected",
	StateConnecting:        "connecting",
	StateConnected:         "connected",
	StateVerifying:         "verifying",
	StateVerified:          "verified",
	StateGeneratingPermits: "generating_permits",
	StateReady:             "ready",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for k, v := range stateNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return errors.Newf("unknown session state %q", string(b))
}

// ChainStatus classifies the wallet's active chain against the required one.
type ChainStatus int

const (
	ChainUnknown ChainStatus = iota
	ChainOk
	ChainMismatch
)

func (c ChainStatus) String() string {
	switch c {
	case ChainOk:
		return "ok"
	case ChainMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

func (c ChainStatus) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// WalletAccount exists only while connected.
type WalletAccount struct {
	Address          common.Address `json:"-"`
	ConnectedChainID uint64         `json:"connectedChainId"`
}

// Canonical is the lower-case form used in records and logs.
func (a WalletAccount) Canonical() string {
	return strings.ToLower(a.Address.Hex())
}

func (a WalletAccount) MarshalJSON() ([]byte, error) {
	type wire struct {
		Address          string `json:"address"`
		ConnectedChainID uint64 `json:"connectedChainId"`
	}
	return json.Marshal(wire{Address: a.Canonical(), ConnectedChainID: a.ConnectedChainID})
}

type PermitFailure struct {
	ChainID   uint64 `json:"chainId"`
	ChainName string `json:"chainName"`
	Error     string `json:"error"`
}

// Snapshot is a consistent copy of the session for readers.
type Snapshot struct {
	ID              string                      `json:"id"`
	State           State                       `json:"state"`
	ChainStatus     ChainStatus                 `json:"chainStatus"`
	RequiredChainID uint64                      `json:"requiredChainId"`
	Account         *WalletAccount              `json:"account,omitempty"`
	Verification    *signing.VerificationRecord `json:"verification,omitempty"`
	Permits         []signing.PermitResult      `json:"permits"`
	PermitFailures  []PermitFailure             `json:"permitFailures,omitempty"`
	Balances        []balances.TokenBalance     `json:"balances"`
	BalanceFailures []balances.Failure          `json:"balanceFailures,omitempty"`
	UpdatedAt       time.Time                   `json:"updatedAt"`
}

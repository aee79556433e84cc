package local

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/helpers"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

type RequestKind string

const (
	KindConnect      RequestKind = "eth_requestAccounts"
	KindPersonalSign RequestKind = "personal_sign"
	KindTypedData    RequestKind = "eth_signTypedData_v4"
	KindSwitchChain  RequestKind = "wallet_switchEthereumChain"
	KindAddChain     RequestKind = "wallet_addEthereumChain"
)

// ApprovalRequest is what the user would see in a wallet popup.
type ApprovalRequest struct {
	Kind      RequestKind
	Account   common.Address
	ChainID   uint64
	Message   []byte
	TypedData *apitypes.TypedData
	AddChain  *wtypes.AddChainParams
}

// Approver decides a request. Any error is reported to the caller as a user
// rejection (4001). Approvers may block until ctx is done.
type Approver func(ctx context.Context, req ApprovalRequest) error

var ErrDeclined = errors.New("declined")

func AutoApprove(context.Context, ApprovalRequest) error { return nil }

// TerminalApprover asks on stdin for every request.
func TerminalApprover() Approver {
	return promptApprover(helpers.Confirm)
}

func promptApprover(confirm func(label string) bool) Approver {
	var mu sync.Mutex
	return func(ctx context.Context, req ApprovalRequest) error {
		// one prompt at a time
		mu.Lock()
		defer mu.Unlock()
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Println()
		fmt.Println(Describe(req))
		if !confirm("Approve") {
			return ErrDeclined
		}
		return nil
	}
}

// Describe renders a request for a prompt.
func Describe(req ApprovalRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n", req.Kind)
	if req.Account != (common.Address{}) {
		fmt.Fprintf(&b, "account: %s\n", req.Account.Hex())
	}
	switch req.Kind {
	case KindPersonalSign:
		fmt.Fprintf(&b, "message:\n%s\n", string(req.Message))
	case KindTypedData:
		if td := req.TypedData; td != nil {
			fmt.Fprintf(&b, "primaryType: %s\n", td.PrimaryType)
			chainID := "-"
			if td.Domain.ChainId != nil {
				chainID = (*big.Int)(td.Domain.ChainId).String()
			}
			fmt.Fprintf(&b, "domain: %s v%s chainId=%s contract=%s\n",
				td.Domain.Name, td.Domain.Version, chainID, td.Domain.VerifyingContract)
			for k, v := range td.Message {
				fmt.Fprintf(&b, "  %s: %v\n", k, v)
			}
		}
	case KindSwitchChain:
		fmt.Fprintf(&b, "switch to chain %d\n", req.ChainID)
	case KindAddChain:
		if ac := req.AddChain; ac != nil {
			fmt.Fprintf(&b, "add chain %d (%s) rpc=%s\n", ac.ChainID, ac.ChainName, strings.Join(ac.RPCURLs, ","))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

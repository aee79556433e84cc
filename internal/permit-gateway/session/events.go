package session

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

// chainQueryTimeout bounds the eth_chainId call that confirms a chain change.
const chainQueryTimeout = 5 * time.Second

// Run consumes wallet events until ctx is done or the provider closes its
// channel. It must run for the lifetime of the session.
func (s *Session) Run(ctx context.Context) error {
	events := s.deps.Provider.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				log.Warn("wallet event stream closed", "session", s.id)
				s.Disconnect()
				return nil
			}
			if s.handle(ctx, ev) {
				go s.refreshAfterEvent(ctx)
			}
		}
	}
}

// handle applies one wallet event and reports whether the connected account
// is left in a state worth refreshing balances for.
func (s *Session) handle(ctx context.Context, ev wtypes.Event) bool {
	switch e := ev.(type) {
	case wtypes.AccountsChanged:
		return s.accountsChanged(e.Accounts)
	case wtypes.ChainChanged:
		s.chainChanged(ctx, e.ChainID)
	default:
		log.Warn("unknown wallet event", "event", ev)
	}
	return false
}

func (s *Session) accountsChanged(accounts []common.Address) bool {
	s.mu.Lock()
	if s.account == nil {
		s.mu.Unlock()
		return false
	}

	if len(accounts) == 0 {
		s.epoch++
		s.resetLocked()
		s.setStateLocked(StateDisconnected)
		s.mu.Unlock()
		log.Info("wallet revoked accounts", "session", s.id)
		s.deps.Balances.Forget()
		s.notify()
		return false
	}

	next := accounts[0]
	if next == s.account.Address {
		s.mu.Unlock()
		return false
	}

	prev := s.account.Address
	s.epoch++
	s.account.Address = next
	s.dropForExternalChangeLocked()
	s.mu.Unlock()

	log.Info("wallet account changed", "session", s.id, "from", prev.Hex(), "to", next.Hex())
	s.notify()
	return true
}

// chainChanged applies a wallet chain change. Events can arrive late (a
// buffered provider) or merged (a polling one), so anything that is neither
// the session's view nor a switch in flight is checked against the chain the
// wallet reports now.
func (s *Session) chainChanged(ctx context.Context, chainID uint64) {
	s.mu.Lock()
	if s.account == nil || s.expectsChainLocked(chainID) {
		s.mu.Unlock()
		return
	}
	epoch := s.epoch
	s.mu.Unlock()

	actual := s.walletChain(ctx, chainID)

	s.mu.Lock()
	if s.account == nil || s.epoch != epoch || s.expectsChainLocked(actual) {
		s.mu.Unlock()
		if actual != chainID {
			log.Info("superseded chain change ignored", "session", s.id, "event", chainID, "wallet", actual)
		}
		return
	}

	prev := s.account.ConnectedChainID
	s.epoch++
	s.account.ConnectedChainID = actual
	s.dropForExternalChangeLocked()
	status := s.chainStatusLocked()
	s.mu.Unlock()

	log.Info("wallet chain changed", "session", s.id, "from", prev, "to", actual, "chainStatus", status.String())
	s.notify()
}

func (s *Session) expectsChainLocked(chainID uint64) bool {
	return chainID == s.account.ConnectedChainID || s.switching[chainID] > 0
}

// walletChain asks the wallet for its active chain, falling back to the
// reported one when the wallet cannot answer.
func (s *Session) walletChain(ctx context.Context, reported uint64) uint64 {
	ctx, cancel := context.WithTimeout(ctx, chainQueryTimeout)
	defer cancel()
	id, err := s.deps.Provider.ChainID(ctx)
	if err != nil {
		log.Warn("could not confirm wallet chain", "session", s.id, "event", reported, "error", err)
		return reported
	}
	return id
}

// dropForExternalChangeLocked discards the verification and everything in
// flight and falls back to Connected.
func (s *Session) dropForExternalChangeLocked() {
	s.discardVerificationLocked()
	s.setStateLocked(StateConnected)
}

func (s *Session) refreshAfterEvent(ctx context.Context) {
	if _, err := s.RefreshBalances(ctx); err != nil {
		log.Warn("balance refresh after account change failed", "session", s.id, "error", err)
	}
}

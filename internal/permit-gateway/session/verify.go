package session

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/metrics"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/signing"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

// EnsureChain asks the wallet to move to the required chain.
func (s *Session) EnsureChain(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.account == nil:
		s.mu.Unlock()
		return errors.Wrap(wtypes.ErrInvalidState, "ensure chain: not connected")
	case s.state == StateVerifying, s.state == StateVerified, s.state == StateGeneratingPermits:
		st := s.state
		s.mu.Unlock()
		return errors.Wrapf(wtypes.ErrInvalidState, "ensure chain in state %s", st)
	}
	t := s.tagLocked(false)
	s.mu.Unlock()

	err := s.switchChain(ctx, s.cfg.RequiredChainID, t)
	s.notify()
	return err
}

// VerifyOwnership signs the ownership message and then produces a permit on
// every registered chain. It returns once the session is Ready. Calling it
// again from Ready starts over; calling it while a signature is pending
// supersedes the pending one.
func (s *Session) VerifyOwnership(ctx context.Context) (signing.VerificationRecord, error) {
	s.mu.Lock()
	switch s.state {
	case StateConnected, StateReady, StateVerifying:
	default:
		st := s.state
		s.mu.Unlock()
		return signing.VerificationRecord{}, errors.Wrapf(wtypes.ErrInvalidState, "verify in state %s", st)
	}
	if s.chainStatusLocked() != ChainOk {
		chainID := s.account.ConnectedChainID
		s.mu.Unlock()
		return signing.VerificationRecord{}, errors.Wrapf(wtypes.ErrChainMismatch,
			"wallet on chain %d, need %d", chainID, s.cfg.RequiredChainID)
	}

	s.discardVerificationLocked()
	s.verifySeq++
	seq := s.verifySeq
	t := s.tagLocked(true)
	s.setStateLocked(StateVerifying)
	s.mu.Unlock()
	s.notify()

	record, err := s.deps.Signer.SignOwnership(ctx, t.address)

	s.mu.Lock()
	if !s.validLocked(t) || s.verifySeq != seq {
		s.mu.Unlock()
		s.logStale("ownership", t)
		return signing.VerificationRecord{}, wtypes.ErrStaleResult
	}
	if err != nil {
		s.setStateLocked(StateConnected)
		s.mu.Unlock()
		s.notify()
		log.Warn("ownership signature failed", "address", t.address.Hex(), "error", err)
		return signing.VerificationRecord{}, err
	}
	s.record = &record
	s.setStateLocked(StateVerified)
	s.mu.Unlock()
	s.notify()

	log.Info("wallet ownership verified", "session", s.id, "address", t.address.Hex())

	// self-initiated switches move the chain; external ones bump the epoch
	t.chainID = 0
	if err := s.generatePermits(ctx, t); err != nil {
		return signing.VerificationRecord{}, err
	}
	return record, nil
}

func (s *Session) generatePermits(ctx context.Context, t tag) error {
	s.mu.Lock()
	if !s.validLocked(t) {
		s.mu.Unlock()
		s.logStale("permit", t)
		return wtypes.ErrStaleResult
	}
	s.setStateLocked(StateGeneratingPermits)
	s.mu.Unlock()
	s.notify()

	policy := s.cfg.Permits
	for _, chain := range s.deps.Registry.ListChains() {
		var (
			result signing.PermitResult
			err    error
		)
		var value *big.Int
		if value, err = policy.valueFor(chain); err == nil {
			err = s.switchChain(ctx, chain.ChainID, t)
		}
		if err == nil {
			deadline := big.NewInt(s.deps.Now().Add(policy.DeadlineTTL).Unix())
			result, err = s.deps.Signer.SignPermit(ctx, chain, t.address, policy.Spender, value, deadline)
		}

		s.mu.Lock()
		if !s.validLocked(t) {
			s.mu.Unlock()
			s.logStale("permit", t)
			return wtypes.ErrStaleResult
		}
		if err != nil {
			s.permitFailures[chain.ChainID] = PermitFailure{ChainID: chain.ChainID, ChainName: chain.Name, Error: err.Error()}
			delete(s.permits, chain.ChainID)
		} else {
			s.permits[chain.ChainID] = result
			delete(s.permitFailures, chain.ChainID)
		}
		s.touchLocked()
		s.mu.Unlock()
		s.notify()

		if err != nil {
			log.Error("permit failed", "chainId", chain.ChainID, "chain", chain.Name, "error", err)
			s.deps.Metrics.IncrementPermit(chain.ChainID, metrics.OutcomeError)
			continue
		}
		log.Info("permit signed", "chainId", chain.ChainID, "chain", chain.Name, "nonce", result.Request.Nonce.String())
		s.deps.Metrics.IncrementPermit(chain.ChainID, metrics.OutcomeOK)
	}

	if err := s.switchChain(ctx, s.cfg.RequiredChainID, t); err != nil {
		log.Warn("could not switch wallet back to the required chain", "chainId", s.cfg.RequiredChainID, "error", err)
	}

	s.mu.Lock()
	if !s.validLocked(t) || s.record == nil {
		s.mu.Unlock()
		s.logStale("permit", t)
		return wtypes.ErrStaleResult
	}
	s.setStateLocked(StateReady)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify()

	return s.persist(ctx, *snap.Verification, snap.Permits)
}

func (s *Session) persist(ctx context.Context, record signing.VerificationRecord, permits []signing.PermitResult) error {
	if s.deps.Sink == nil {
		return nil
	}
	principal, err := s.deps.Principal.PrincipalID(ctx)
	if err != nil {
		return errors.Wrap(err, "resolve principal")
	}
	if err := s.deps.Sink.SaveAuthorization(ctx, principal, record, permits); err != nil {
		log.Error("persist authorization failed", "principal", principal, "address", record.Address.Hex(), "error", err)
		return errors.Wrap(err, "persist authorization")
	}
	log.Info("authorization persisted", "principal", principal, "address", record.Address.Hex(), "permits", len(permits))
	return nil
}

// switchChain runs a session-initiated chain switch. While the call is in
// flight a ChainChanged for target is the wallet reporting this switch and is
// not treated as an external change.
func (s *Session) switchChain(ctx context.Context, target uint64, t tag) error {
	s.mu.Lock()
	if !s.validLocked(t) {
		s.mu.Unlock()
		return wtypes.ErrStaleResult
	}
	s.switching[target]++
	s.mu.Unlock()

	err := s.deps.Chains.EnsureChain(ctx, target)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doneSwitchingLocked(target)
	if err != nil {
		return err
	}
	if s.validLocked(t) {
		s.account.ConnectedChainID = target
		s.touchLocked()
	}
	return nil
}

func (s *Session) doneSwitchingLocked(chainID uint64) {
	if s.switching[chainID] <= 1 {
		delete(s.switching, chainID)
		return
	}
	s.switching[chainID]--
}

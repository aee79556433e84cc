// Package session is the connect -> verify -> authorize state machine that
// the rest of the application drives.
//
// Every wallet or RPC call is issued with a tag (epoch, address, chain) taken
// under the lock. The lock is released for the call and the result is applied
// only if the tag still matches; otherwise it is dropped as stale. External
// wallet events bump the epoch.
package session

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/shopspring/decimal"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/balances"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chains"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/metrics"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/signing"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/utils"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

// BalanceRefresher is satisfied by *balances.Aggregator.
type BalanceRefresher interface {
	RefreshDetailed(ctx context.Context, address common.Address) (balances.Result, error)
	Forget()
}

// Signer is satisfied by *signing.Service.
type Signer interface {
	SignOwnership(ctx context.Context, address common.Address) (signing.VerificationRecord, error)
	SignPermit(ctx context.Context, chain chains.ChainConfig, owner, spender common.Address, value, deadline *big.Int) (signing.PermitResult, error)
}

// ChainSwitcher is satisfied by *chainclient.Client.
type ChainSwitcher interface {
	EnsureChain(ctx context.Context, targetChainID uint64) error
}

// PermitPolicy is what every permit approves. Amount, when set, is in token
// units and is scaled by each chain's decimals; otherwise Value is used as a
// raw base-unit amount on every chain.
type PermitPolicy struct {
	Spender     common.Address
	Value       *big.Int
	Amount      *decimal.Decimal
	DeadlineTTL time.Duration
}

func (p PermitPolicy) valueFor(chain chains.ChainConfig) (*big.Int, error) {
	if p.Amount == nil {
		return p.Value, nil
	}
	v, ok := utils.ParseUnits(*p.Amount, chain.Token.Decimals)
	if !ok {
		return nil, wtypes.NewChainError(chain.ChainID, wtypes.ErrInvalidValue,
			errors.Newf("%s has more than %d decimals", p.Amount.String(), chain.Token.Decimals))
	}
	return v, nil
}

type Config struct {
	RequiredChainID uint64
	Permits         PermitPolicy
}

type Deps struct {
	Provider  wtypes.Provider
	Registry  *chains.Registry
	Chains    ChainSwitcher
	Balances  BalanceRefresher
	Signer    Signer
	Principal Principal
	Sink      Sink // optional
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

type tag struct {
	epoch   uint64
	address common.Address
	chainID uint64 // 0: not bound to the active chain
}

type Session struct {
	id   string
	cfg  Config
	deps Deps

	mu             sync.Mutex
	state          State
	epoch          uint64
	verifySeq      uint64
	account        *WalletAccount
	record         *signing.VerificationRecord
	permits        map[uint64]signing.PermitResult
	permitFailures map[uint64]PermitFailure
	balances       balances.Result
	switching      map[uint64]int // chain -> session switches in flight
	updatedAt      time.Time

	subsMu  sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

func New(cfg Config, deps Deps) (*Session, error) {
	switch {
	case deps.Provider == nil:
		return nil, errors.New("session: wallet provider is required")
	case deps.Registry == nil:
		return nil, errors.New("session: chain registry is required")
	case deps.Chains == nil, deps.Balances == nil, deps.Signer == nil:
		return nil, errors.New("session: chain client, balances and signer are required")
	case deps.Principal == nil:
		return nil, errors.New("session: principal is required")
	}
	if !deps.Registry.Contains(cfg.RequiredChainID) {
		return nil, wtypes.NewChainError(cfg.RequiredChainID, wtypes.ErrUnsupportedChain, errors.New("required chain is not registered"))
	}
	if cfg.Permits.Value == nil && cfg.Permits.Amount == nil {
		return nil, errors.New("session: permit value or amount is required")
	}
	if cfg.Permits.DeadlineTTL <= 0 {
		return nil, errors.New("session: permit deadline ttl must be positive")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		deps:      deps,
		subs:      make(map[int]chan Snapshot),
		switching: make(map[uint64]int),
	}
	s.resetLocked()
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Connect asks the wallet for accounts and its active chain.
func (s *Session) Connect(ctx context.Context) (WalletAccount, error) {
	s.mu.Lock()
	if s.state != StateDisconnected {
		st := s.state
		s.mu.Unlock()
		return WalletAccount{}, errors.Wrapf(wtypes.ErrInvalidState, "connect in state %s", st)
	}
	s.epoch++
	ep := s.epoch
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()
	s.notify()

	accounts, err := s.deps.Provider.RequestAccounts(ctx)
	var chainID uint64
	if err == nil && len(accounts) > 0 {
		chainID, err = s.deps.Provider.ChainID(ctx)
	}

	s.mu.Lock()
	if s.epoch != ep {
		s.mu.Unlock()
		s.logStale("connect", tag{epoch: ep})
		return WalletAccount{}, wtypes.ErrStaleResult
	}
	if err != nil || len(accounts) == 0 {
		s.setStateLocked(StateDisconnected)
		s.mu.Unlock()
		s.notify()
		if err == nil {
			return WalletAccount{}, errors.Wrap(wtypes.ErrConnectionFailed, "wallet returned no accounts")
		}
		log.Error("wallet connect failed", "error", err)
		return WalletAccount{}, fmt.Errorf("%w: %w", wtypes.ErrConnectionFailed, err)
	}

	acct := WalletAccount{Address: accounts[0], ConnectedChainID: chainID}
	s.account = &acct
	s.setStateLocked(StateConnected)
	status := s.chainStatusLocked()
	s.mu.Unlock()
	s.notify()

	log.Info("wallet connected", "session", s.id, "address", acct.Canonical(), "chainId", chainID, "chainStatus", status.String())

	if _, err := s.RefreshBalances(ctx); err != nil {
		log.Error("balance refresh after connect failed", "address", acct.Canonical(), "error", err)
	}
	return acct, nil
}

// Disconnect forgets the wallet. It always succeeds.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.epoch++
	s.resetLocked()
	s.setStateLocked(StateDisconnected)
	s.mu.Unlock()

	s.deps.Balances.Forget()
	s.notify()
}

// RefreshBalances reads the token balance on every registered chain. Reads go
// to each chain's own RPC endpoint, so a wallet on the wrong chain still gets
// balances.
func (s *Session) RefreshBalances(ctx context.Context) ([]balances.TokenBalance, error) {
	s.mu.Lock()
	if s.account == nil {
		s.mu.Unlock()
		return nil, errors.Wrap(wtypes.ErrInvalidState, "refresh balances: not connected")
	}
	t := s.tagLocked(false)
	s.mu.Unlock()

	res, err := s.deps.Balances.RefreshDetailed(ctx, t.address)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if !s.validLocked(t) {
		s.mu.Unlock()
		s.logStale("balances", t)
		return nil, wtypes.ErrStaleResult
	}
	s.balances = res
	s.touchLocked()
	s.mu.Unlock()
	s.notify()

	return res.Balances, nil
}

func (s *Session) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe delivers the latest snapshot after every change. Slow readers
// only see the most recent one.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	snap := s.Snapshot()

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	offer(ch, snap)
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Session) notify() {
	snap := s.Snapshot()

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		offer(ch, snap)
	}
}

// offer replaces whatever is buffered in ch with snap.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:              s.id,
		State:           s.state,
		ChainStatus:     s.chainStatusLocked(),
		RequiredChainID: s.cfg.RequiredChainID,
		Permits:         []signing.PermitResult{},
		Balances:        append([]balances.TokenBalance{}, s.balances.Balances...),
		BalanceFailures: append([]balances.Failure(nil), s.balances.Failures...),
		UpdatedAt:       s.updatedAt,
	}
	if s.account != nil {
		acct := *s.account
		snap.Account = &acct
	}
	if s.record != nil {
		rec := *s.record
		snap.Verification = &rec
	}
	for _, c := range s.deps.Registry.ListChains() {
		if p, ok := s.permits[c.ChainID]; ok {
			snap.Permits = append(snap.Permits, p)
		}
		if f, ok := s.permitFailures[c.ChainID]; ok {
			snap.PermitFailures = append(snap.PermitFailures, f)
		}
	}
	return snap
}

func (s *Session) chainStatusLocked() ChainStatus {
	if s.account == nil {
		return ChainUnknown
	}
	if s.account.ConnectedChainID == s.cfg.RequiredChainID {
		return ChainOk
	}
	return ChainMismatch
}

func (s *Session) setStateLocked(to State) {
	from := s.state
	s.state = to
	s.touchLocked()
	if from == to {
		return
	}
	s.deps.Metrics.IncrementTransition(from.String(), to.String())
	log.Info("session state changed", "session", s.id, "from", from.String(), "to", to.String())
}

func (s *Session) touchLocked() {
	s.updatedAt = s.deps.Now().UTC()
}

// resetLocked drops everything tied to a wallet connection.
func (s *Session) resetLocked() {
	s.account = nil
	s.balances = balances.Result{}
	s.discardVerificationLocked()
}

func (s *Session) discardVerificationLocked() {
	s.record = nil
	s.permits = make(map[uint64]signing.PermitResult)
	s.permitFailures = make(map[uint64]PermitFailure)
}

func (s *Session) tagLocked(bindChain bool) tag {
	t := tag{epoch: s.epoch}
	if s.account != nil {
		t.address = s.account.Address
		if bindChain {
			t.chainID = s.account.ConnectedChainID
		}
	}
	return t
}

func (s *Session) validLocked(t tag) bool {
	if t.epoch != s.epoch || s.account == nil || s.account.Address != t.address {
		return false
	}
	return t.chainID == 0 || s.account.ConnectedChainID == t.chainID
}

func (s *Session) logStale(kind string, t tag) {
	log.Info("stale result dropped", "kind", kind, "session", s.id,
		"epoch", t.epoch, "address", t.address.Hex(), "chainId", t.chainID)
	s.deps.Metrics.IncrementStale(kind)
}

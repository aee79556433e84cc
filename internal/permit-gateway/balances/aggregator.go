// Package balances fans balance reads out across every registered chain.
package balances

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"golang.org/x/sync/errgroup"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chainclient"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chains"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/metrics"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

type TokenBalance = chainclient.TokenBalance

// Reader is the per-chain balance read. *chainclient.Client satisfies it.
type Reader interface {
	GetBalance(ctx context.Context, chain chains.ChainConfig, address common.Address) (TokenBalance, error)
}

// Failure is a chain left out of a refresh.
type Failure struct {
	ChainID   uint64 `json:"chainId"`
	ChainName string `json:"chainName"`
	Error     string `json:"error"`
	Err       error  `json:"-"`
}

// Result is a finished refresh. Balances follow registry order.
type Result struct {
	Address   common.Address `json:"address"`
	Balances  []TokenBalance `json:"balances"`
	Failures  []Failure      `json:"failures,omitempty"`
	FetchedAt time.Time      `json:"fetchedAt"`
}

type Config struct {
	IncludeZero    bool
	MaxConcurrency int
}

type Aggregator struct {
	registry *chains.Registry
	reader   Reader
	metrics  *metrics.Metrics
	cfg      Config

	mu         sync.Mutex
	generation uint64
	latest     map[common.Address]Result
}

func NewAggregator(registry *chains.Registry, reader Reader, cfg Config, m *metrics.Metrics) (*Aggregator, error) {
	if registry == nil || reader == nil {
		return nil, errors.New("balances: registry and reader are required")
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = registry.Len()
	}
	return &Aggregator{
		registry: registry,
		reader:   reader,
		metrics:  m,
		cfg:      cfg,
		latest:   make(map[common.Address]Result),
	}, nil
}

// Refresh reads address's balance on every chain.
func (a *Aggregator) Refresh(ctx context.Context, address common.Address) ([]TokenBalance, error) {
	res, err := a.RefreshDetailed(ctx, address)
	if err != nil {
		return nil, err
	}
	return res.Balances, nil
}

// RefreshDetailed is Refresh plus the chains that failed. A refresh started
// later supersedes this one, in which case ErrStaleResult is returned and
// nothing is retained.
func (a *Aggregator) RefreshDetailed(ctx context.Context, address common.Address) (Result, error) {
	a.mu.Lock()
	a.generation++
	gen := a.generation
	a.mu.Unlock()

	start := time.Now()
	list := a.registry.ListChains()

	type slot struct {
		bal TokenBalance
		err error
	}
	slots := make([]slot, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxConcurrency)

	for i, chain := range list {
		g.Go(func() error {
			bal, err := a.reader.GetBalance(gctx, chain, address)
			slots[i] = slot{bal: bal, err: err}
			// per-chain failures never cancel the others
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, errors.Wrap(err, "balance refresh")
	}

	res := Result{Address: address, Balances: make([]TokenBalance, 0, len(list)), FetchedAt: time.Now().UTC()}
	for i, chain := range list {
		s := slots[i]
		if s.err != nil {
			log.Error("balance read failed", "chainId", chain.ChainID, "chain", chain.Name, "error", s.err)
			a.metrics.IncrementBalanceRead(chain.ChainID, metrics.OutcomeError)
			res.Failures = append(res.Failures, Failure{
				ChainID:   chain.ChainID,
				ChainName: chain.Name,
				Error:     s.err.Error(),
				Err:       s.err,
			})
			continue
		}
		if s.bal.RawAmount == nil || s.bal.RawAmount.Sign() == 0 {
			if !a.cfg.IncludeZero {
				a.metrics.IncrementBalanceRead(chain.ChainID, metrics.OutcomeSkipped)
				continue
			}
		}
		a.metrics.IncrementBalanceRead(chain.ChainID, metrics.OutcomeOK)
		res.Balances = append(res.Balances, s.bal)
	}
	a.metrics.ObserveRefreshLatency(time.Since(start))

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generation != gen {
		log.Info("stale balance refresh dropped", "address", address.Hex(), "generation", gen, "current", a.generation)
		a.metrics.IncrementStale("balances")
		return Result{}, wtypes.ErrStaleResult
	}
	a.latest[address] = res
	return res, nil
}

// Latest returns the most recent retained refresh for address.
func (a *Aggregator) Latest(address common.Address) (Result, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	res, ok := a.latest[address]
	return res, ok
}

// Forget drops retained results, e.g. on disconnect.
func (a *Aggregator) Forget() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation++
	a.latest = make(map[common.Address]Result)
}

package chains

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/quantumauth-io/quantum-go-utils/retry"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

// Backend is the read-only RPC surface the token binding needs.
type Backend interface {
	bind.ContractCaller
	ChainID(ctx context.Context) (*big.Int, error)
}

// Dialer opens a Backend for one chain.
type Dialer func(ctx context.Context, chain ChainConfig) (Backend, error)

// ClientPool caches one direct RPC client per registered chain. Balance and
// nonce reads go through it and never through the wallet.
type ClientPool struct {
	registry *Registry
	dial     Dialer

	retryDial  bool
	retryDelay time.Duration

	mu             sync.Mutex
	clientsByChain map[uint64]Backend
}

type PoolOption func(*ClientPool)

func WithDialer(d Dialer) PoolOption {
	return func(p *ClientPool) { p.dial = d }
}

// WithDialRetry retries dialing (and the chainId check) with the given max
// delay between attempts.
func WithDialRetry(maxDelay time.Duration) PoolOption {
	return func(p *ClientPool) {
		p.retryDial = true
		p.retryDelay = maxDelay
	}
}

func NewClientPool(registry *Registry, opts ...PoolOption) (*ClientPool, error) {
	if registry == nil {
		return nil, errors.New("chain registry is nil")
	}
	p := &ClientPool{
		registry:       registry,
		dial:           DialEthClient,
		clientsByChain: make(map[uint64]Backend),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Backend returns (and caches) the RPC client for chainID.
func (p *ClientPool) Backend(ctx context.Context, chainID uint64) (Backend, error) {
	p.mu.Lock()
	if existing := p.clientsByChain[chainID]; existing != nil {
		p.mu.Unlock()
		return existing, nil
	}
	p.mu.Unlock()

	chain, err := p.registry.Lookup(chainID)
	if err != nil {
		return nil, err
	}

	// Dial outside the lock so one slow chain never blocks the others.
	dialed, err := p.dialChain(ctx, chain)
	if err != nil {
		return nil, wtypes.NewChainError(chainID, wtypes.ErrRPC, err)
	}

	p.mu.Lock()
	if existing := p.clientsByChain[chainID]; existing != nil {
		p.mu.Unlock()
		safeClose(dialed)
		return existing, nil
	}
	p.clientsByChain[chainID] = dialed
	p.mu.Unlock()

	return dialed, nil
}

func (p *ClientPool) dialChain(ctx context.Context, chain ChainConfig) (Backend, error) {
	if !p.retryDial {
		return p.dial(ctx, chain)
	}

	cfg := retry.DefaultConfig()
	cfg.MaxDelayBeforeRetrying = p.retryDelay
	cfg.InitialDelayBeforeRetrying = p.retryDelay / 10

	res, err := retry.Retry(ctx, cfg,
		func(ctx context.Context) ([]interface{}, error) {
			b, err := p.dial(ctx, chain)
			if err != nil {
				log.Warn("chain rpc dial failed", "chainId", chain.ChainID, "error", err)
				return nil, err
			}
			return []interface{}{b}, nil
		},
		nil,
		"dial chain rpc")
	if err != nil {
		return nil, err
	}
	if len(res) != 1 {
		return nil, errors.Newf("dial chain %d: unexpected retry result", chain.ChainID)
	}
	b, ok := res[0].(Backend)
	if !ok {
		return nil, errors.Newf("dial chain %d: unexpected backend type %T", chain.ChainID, res[0])
	}
	return b, nil
}

// Close closes all cached clients (call on shutdown).
func (p *ClientPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, c := range p.clientsByChain {
		safeClose(c)
		delete(p.clientsByChain, id)
	}
}

// DialEthClient dials chain.RPCURL and checks the endpoint serves the chain
// it is configured for.
func DialEthClient(ctx context.Context, chain ChainConfig) (Backend, error) {
	client, err := ethclient.DialContext(ctx, chain.RPCURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s rpc", chain.Name)
	}

	got, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "eth_chainId on %s", chain.Name)
	}
	if got.Uint64() != chain.ChainID {
		client.Close()
		return nil, errors.Newf("rpc for %s serves chain %s, want %d", chain.Name, got, chain.ChainID)
	}
	return client, nil
}

func safeClose(b Backend) {
	if b == nil {
		return
	}
	if closer, ok := b.(interface{ Close() }); ok {
		closer.Close()
	}
}

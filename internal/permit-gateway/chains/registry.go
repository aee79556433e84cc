package chains

import (
	"github.com/cockroachdb/errors"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

// Registry is the static, ordered table of supported chains.
type Registry struct {
	chains []ChainConfig
	byID   map[uint64]int
}

func NewRegistry(list []ChainConfig) (*Registry, error) {
	if len(list) == 0 {
		return nil, errors.New("chain registry is empty")
	}

	r := &Registry{
		chains: make([]ChainConfig, 0, len(list)),
		byID:   make(map[uint64]int, len(list)),
	}
	for _, c := range list {
		if c.ChainID == 0 {
			return nil, errors.Newf("chain %q has chainId 0", c.Name)
		}
		if _, dup := r.byID[c.ChainID]; dup {
			return nil, errors.Newf("duplicate chainId %d", c.ChainID)
		}
		r.byID[c.ChainID] = len(r.chains)
		r.chains = append(r.chains, c)
	}
	return r, nil
}

func NewRegistryFromNetworks(networks []NetworkConfig) (*Registry, error) {
	list := make([]ChainConfig, 0, len(networks))
	for _, n := range networks {
		c, err := n.Resolve()
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return NewRegistry(list)
}

// ListChains returns the chains in declared order. The slice is a copy.
func (r *Registry) ListChains() []ChainConfig {
	out := make([]ChainConfig, len(r.chains))
	copy(out, r.chains)
	return out
}

func (r *Registry) Lookup(chainID uint64) (ChainConfig, error) {
	i, ok := r.byID[chainID]
	if !ok {
		return ChainConfig{}, wtypes.NewChainError(chainID, wtypes.ErrUnsupportedChain, nil)
	}
	return r.chains[i], nil
}

func (r *Registry) Contains(chainID uint64) bool {
	_, ok := r.byID[chainID]
	return ok
}

func (r *Registry) Len() int { return len(r.chains) }

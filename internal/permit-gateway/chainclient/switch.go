package chainclient

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chains"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

// EnsureChain asks the wallet to switch to targetChainID. A wallet that does
// not know the chain gets wallet_addEthereumChain and one more switch
// attempt.
func (c *Client) EnsureChain(ctx context.Context, targetChainID uint64) error {
	chain, err := c.registry.Lookup(targetChainID)
	if err != nil {
		return err
	}
	if c.provider == nil {
		return wtypes.NewChainError(targetChainID, wtypes.ErrWalletDisconnected, nil)
	}

	current, err := c.provider.ChainID(ctx)
	if err != nil {
		return errors.Wrap(err, "eth_chainId")
	}
	if current == targetChainID {
		return nil
	}

	err = c.provider.SwitchChain(ctx, targetChainID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, wtypes.ErrChainUnknownToWallet) {
		return switchError(targetChainID, err)
	}

	log.Info("wallet does not know chain, adding it", "chainId", targetChainID, "name", chain.Name)
	if err := c.provider.AddChain(ctx, AddChainParams(chain)); err != nil {
		return switchError(targetChainID, err)
	}

	if err := c.provider.SwitchChain(ctx, targetChainID); err != nil {
		return switchError(targetChainID, err)
	}
	return nil
}

func switchError(chainID uint64, err error) error {
	switch {
	case errors.Is(err, wtypes.ErrUserRejected):
		return wtypes.NewChainError(chainID, wtypes.ErrChainSwitchRejected, err)
	case errors.Is(err, wtypes.ErrChainUnknownToWallet):
		return wtypes.NewChainError(chainID, wtypes.ErrChainUnknownToWallet, err)
	default:
		return errors.Wrapf(err, "switch wallet to chain %d", chainID)
	}
}

// AddChainParams builds wallet_addEthereumChain params from a registry entry.
func AddChainParams(chain chains.ChainConfig) wtypes.AddChainParams {
	p := wtypes.AddChainParams{
		ChainID:   chain.ChainID,
		ChainName: chain.Name,
		RPCURLs:   []string{chain.RPCURL},
		NativeCurrency: wtypes.NativeCurrency{
			Name:     chain.NativeCurrency.Name,
			Symbol:   chain.NativeCurrency.Symbol,
			Decimals: chain.NativeCurrency.Decimals,
		},
	}
	if chain.Explorer != "" {
		p.BlockExplorerURLs = []string{chain.Explorer}
	}
	return p
}

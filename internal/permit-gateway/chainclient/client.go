// Package chainclient reads token state from each chain's own RPC endpoint
// and asks the wallet to move between chains.
package chainclient

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/shopspring/decimal"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chains"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/constants"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/contracts/bindings/go/permittoken"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/utils"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

// TokenBalance is one chain's entry in a balance refresh.
type TokenBalance struct {
	ChainID      uint64          `json:"chainId"`
	ChainName    string          `json:"chainName"`
	Symbol       string          `json:"symbol"`
	TokenAddress common.Address  `json:"tokenAddress"`
	RawAmount    *big.Int        `json:"rawAmount"`
	Decimals     uint8           `json:"decimals"`
	HumanAmount  decimal.Decimal `json:"humanAmount"`
	Display      string          `json:"display"`
}

type Client struct {
	registry *chains.Registry
	pool     *chains.ClientPool
	provider wtypes.Provider

	displayDecimals int
}

type Option func(*Client)

func WithDisplayDecimals(n int) Option {
	return func(c *Client) { c.displayDecimals = n }
}

// New builds a client. provider may be nil when only reads are needed.
func New(registry *chains.Registry, pool *chains.ClientPool, provider wtypes.Provider, opts ...Option) (*Client, error) {
	if registry == nil {
		return nil, errors.New("chainclient: registry is nil")
	}
	if pool == nil {
		return nil, errors.New("chainclient: client pool is nil")
	}
	c := &Client{
		registry:        registry,
		pool:            pool,
		provider:        provider,
		displayDecimals: constants.DisplayDecimalsDefault,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) token(ctx context.Context, chain chains.ChainConfig) (*permittoken.PermitToken, error) {
	backend, err := c.pool.Backend(ctx, chain.ChainID)
	if err != nil {
		return nil, asChainError(chain.ChainID, err)
	}
	tok, err := permittoken.NewPermitToken(chain.Token.Address, backend)
	if err != nil {
		return nil, wtypes.NewChainError(chain.ChainID, wtypes.ErrRPC, errors.Wrap(err, "bind token"))
	}
	return tok, nil
}

// GetBalance reads balanceOf and decimals for address on chain.
func (c *Client) GetBalance(ctx context.Context, chain chains.ChainConfig, address common.Address) (TokenBalance, error) {
	tok, err := c.token(ctx, chain)
	if err != nil {
		return TokenBalance{}, err
	}

	call := &bind.CallOpts{Context: ctx}
	raw, err := tok.BalanceOf(call, address)
	if err != nil {
		return TokenBalance{}, wtypes.NewChainError(chain.ChainID, wtypes.ErrRPC, errors.Wrap(err, "balanceOf"))
	}
	dec, err := tok.Decimals(call)
	if err != nil {
		return TokenBalance{}, wtypes.NewChainError(chain.ChainID, wtypes.ErrRPC, errors.Wrap(err, "decimals"))
	}
	if dec != chain.Token.Decimals && chain.Token.Decimals != 0 {
		log.Warn("token decimals differ from config, using on-chain value",
			"chainId", chain.ChainID, "configured", chain.Token.Decimals, "onchain", dec)
	}

	return TokenBalance{
		ChainID:      chain.ChainID,
		ChainName:    chain.Name,
		Symbol:       chain.Token.Symbol,
		TokenAddress: chain.Token.Address,
		RawAmount:    raw,
		Decimals:     dec,
		HumanAmount:  utils.HumanAmount(raw, dec),
		Display:      utils.FormatUnitsTrim(raw, dec, c.displayDecimals),
	}, nil
}

// GetNonce reads the permit nonce of owner. Never cached.
func (c *Client) GetNonce(ctx context.Context, chain chains.ChainConfig, owner common.Address) (*big.Int, error) {
	tok, err := c.token(ctx, chain)
	if err != nil {
		return nil, err
	}
	n, err := tok.Nonces(&bind.CallOpts{Context: ctx}, owner)
	if err != nil {
		return nil, wtypes.NewChainError(chain.ChainID, wtypes.ErrRPC, errors.Wrap(err, "nonces"))
	}
	return n, nil
}

// GetDomainSeparator reads DOMAIN_SEPARATOR(). Never cached.
func (c *Client) GetDomainSeparator(ctx context.Context, chain chains.ChainConfig) ([32]byte, error) {
	tok, err := c.token(ctx, chain)
	if err != nil {
		return [32]byte{}, err
	}
	sep, err := tok.DOMAINSEPARATOR(&bind.CallOpts{Context: ctx})
	if err != nil {
		return [32]byte{}, wtypes.NewChainError(chain.ChainID, wtypes.ErrRPC, errors.Wrap(err, "DOMAIN_SEPARATOR"))
	}
	return sep, nil
}

func asChainError(chainID uint64, err error) error {
	var ce *wtypes.ChainError
	if errors.As(err, &ce) {
		return err
	}
	return wtypes.NewChainError(chainID, wtypes.ErrRPC, err)
}

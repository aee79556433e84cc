package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/balances"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/chains"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/session"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/signing"
)

// Session is the part of *session.Session the API drives.
type Session interface {
	Connect(ctx context.Context) (session.WalletAccount, error)
	Disconnect()
	EnsureChain(ctx context.Context) error
	VerifyOwnership(ctx context.Context) (signing.VerificationRecord, error)
	RefreshBalances(ctx context.Context) ([]balances.TokenBalance, error)
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
}

type Handler struct {
	session  Session
	registry *chains.Registry
}

func NewHandler(s Session, registry *chains.Registry) *Handler {
	return &Handler{
		session:  s,
		registry: registry,
	}
}

// -------- DTOs --------

type chainRes struct {
	ChainID    uint64   `json:"chainId"`
	ChainIDHex string   `json:"chainIdHex"`
	Name       string   `json:"name"`
	Explorer   string   `json:"explorer,omitempty"`
	Token      tokenRes `json:"token"`
}

type tokenRes struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type balancesRes struct {
	Balances []balances.TokenBalance `json:"balances"`
	Failures []balances.Failure      `json:"failures,omitempty"`
}

func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /api/chains
func (h *Handler) Chains(c *gin.Context) {
	list := h.registry.ListChains()
	out := make([]chainRes, 0, len(list))
	for _, ch := range list {
		out = append(out, chainRes{
			ChainID:    ch.ChainID,
			ChainIDHex: ch.ChainIDHex(),
			Name:       ch.Name,
			Explorer:   ch.Explorer,
			Token: tokenRes{
				Address:  ch.Token.Address.Hex(),
				Symbol:   ch.Token.Symbol,
				Decimals: ch.Token.Decimals,
			},
		})
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/session
func (h *Handler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// POST /api/session/connect
func (h *Handler) Connect(c *gin.Context) {
	if _, err := h.session.Connect(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// POST /api/session/disconnect
func (h *Handler) Disconnect(c *gin.Context) {
	h.session.Disconnect()
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// POST /api/session/ensure-chain
func (h *Handler) EnsureChain(c *gin.Context) {
	if err := h.session.EnsureChain(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// POST /api/session/verify
//
// Blocks until every chain has a permit or a recorded failure.
func (h *Handler) Verify(c *gin.Context) {
	if _, err := h.session.VerifyOwnership(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// GET /api/balances
func (h *Handler) Balances(c *gin.Context) {
	list, err := h.session.RefreshBalances(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, balancesRes{
		Balances: list,
		Failures: h.session.Snapshot().BalanceFailures,
	})
}

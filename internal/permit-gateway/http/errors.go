package http

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/wtypes"
)

type errorRes struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, wtypes.ErrChainMismatch):
		return http.StatusConflict, "chain_mismatch"
	case errors.Is(err, wtypes.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, wtypes.ErrStaleResult):
		return http.StatusConflict, "stale_result"
	case errors.Is(err, wtypes.ErrChainSwitchRejected):
		return http.StatusForbidden, "chain_switch_rejected"
	case errors.Is(err, wtypes.ErrUserRejected):
		return http.StatusForbidden, "user_rejected"
	case errors.Is(err, wtypes.ErrConnectionFailed):
		return http.StatusBadGateway, "connection_failed"
	case errors.Is(err, wtypes.ErrWalletDisconnected):
		return http.StatusBadGateway, "wallet_disconnected"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(c *gin.Context, err error) {
	status, kind := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, errorRes{Error: err.Error(), Kind: kind})
}

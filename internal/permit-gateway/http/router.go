// Package http exposes the wallet session over a small JSON API.
package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handler, allowedOrigins []string, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.Default()

	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     allowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
		}))
	}

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/chains", h.Chains)
		api.GET("/balances", h.Balances)

		api.GET("/session", h.Snapshot)
		api.GET("/session/events", h.Events)
		api.POST("/session/connect", h.Connect)
		api.POST("/session/disconnect", h.Disconnect)
		api.POST("/session/ensure-chain", h.EnsureChain)
		api.POST("/session/verify", h.Verify)
	}

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorRes{Error: "not found", Kind: "not_found"})
	})

	return r
}

package http

import (
	"io"

	"github.com/gin-gonic/gin"
)

// GET /api/session/events
//
// Server-sent events, one "snapshot" event per session change. The current
// snapshot is sent first.
func (h *Handler) Events(c *gin.Context) {
	ch, cancel := h.session.Subscribe()
	defer cancel()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		}
	})
}

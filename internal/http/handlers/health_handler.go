// README: Liveness endpoint; pings the database when one is wired.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	Base
	db Pinger
}

// NewHealthHandler builds the /health handler. db may be nil.
func NewHealthHandler(base Base, db Pinger) *HealthHandler {
	return &HealthHandler{Base: base, db: db}
}

func (h *HealthHandler) Check(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.Log.Warn(c.Request.Context(), "health check: database unreachable", "err", err)
			writeJSON(c, http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

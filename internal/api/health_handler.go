package api

import (
	"context"
	"net/http"
	"time"

	"github.com/soundbite/engagement/internal/pkg/httputil"
	"github.com/soundbite/engagement/internal/pkg/logger"
)

// HealthStatus is the /health body.
type HealthStatus struct {
	Status string            `json:"status"` // "healthy" or "unhealthy"
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck reports liveness and database reachability. An unreachable
// database returns 503 so load balancers drain the instance.
//
//	GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status: "healthy",
		Uptime: time.Since(h.started).Round(time.Second).String(),
		Checks: map[string]string{"database": "not_configured"},
	}
	code := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			logger.Warn("health check database ping failed", "error", err)
			status.Status = "unhealthy"
			status.Checks["database"] = "down"
			code = http.StatusServiceUnavailable
		} else {
			status.Checks["database"] = "up"
		}
	}

	httputil.JSON(w, code, status)
}

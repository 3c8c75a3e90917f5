// health_handler.go -- Health check handler for GET /health.
package auth

import (
	"errors"
	"net/http"

	"github.com/jfeld-dev/janus/internal/store"
)

// CheckHealth handles GET /health -- pings Postgres and Redis, returns
// per-dependency status. 200 if everything configured is healthy, 503
// otherwise. A disabled cache is not a failure.
func (h *Handler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	postgresStatus := "ok"
	redisStatus := "ok"

	if err := h.PS.CheckHealth(r.Context()); err != nil {
		logError(r, "postgres health check failed", "error", err)
		postgresStatus = "error"
	}
	if err := h.RS.CheckHealth(r.Context()); err != nil {
		if errors.Is(err, store.ErrCacheDisabled) {
			redisStatus = "disabled"
		} else {
			logError(r, "redis health check failed", "error", err)
			redisStatus = "error"
		}
	}

	status := http.StatusOK
	if postgresStatus == "error" || redisStatus == "error" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, struct {
		Postgres string `json:"postgres"`
		Redis    string `json:"redis"`
	}{postgresStatus, redisStatus})
}

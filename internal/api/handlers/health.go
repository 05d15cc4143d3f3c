package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/pkg/utils"
)

// Check probes one dependency
type Check func(ctx context.Context) error

// HealthHandler handles health check requests
type HealthHandler struct {
	store  Check
	cache  Check
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler. cache may be nil.
func NewHealthHandler(store, cache Check, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:  store,
		cache:  cache,
		logger: log,
	}
}

// Healthz handles liveness probe
// @Summary Liveness probe
// @Description Check if the application is alive
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Application is alive"
// @Router /health [get]
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Readyz handles readiness probe. The cache is reported but never fails
// the probe.
// @Summary Readiness probe
// @Description Check if the record store is reachable
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string "Application is ready"
// @Failure 503 {object} utils.ErrorResponse "Service unavailable"
// @Router /readyz [get]
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store(ctx); err != nil {
		h.logger.ErrorWithErr(err, "Record store ping failed")
		utils.WriteError(w, errors.ServiceUnavailable("Record store connection failed"))
		return
	}

	status := map[string]string{
		"status": "ready",
		"store":  "connected",
	}
	if h.cache != nil {
		status["cache"] = "connected"
		if err := h.cache(ctx); err != nil {
			h.logger.WarnWithErr(err, "Cache ping failed")
			status["cache"] = "unavailable"
		}
	}

	utils.WriteSuccess(w, http.StatusOK, status)
}

package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/cloudops/internal/domain/insight"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/pkg/utils"
)

type InsightHandler struct {
	service insight.Service
	logger  *logger.Logger
}

func NewInsightHandler(service insight.Service, log *logger.Logger) *InsightHandler {
	return &InsightHandler{service: service, logger: log}
}

// Get generates insights for an account
// @Summary Cost insights
// @Description Narrative insights over recent costs and metrics. Falls back to a static summary when the model is unavailable.
// @Tags Insights
// @Produce json
// @Param accountId path string true "Account ID"
// @Success 200 {object} insight.Insight "Insights"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /insights/{accountId} [get]
func (h *InsightHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.service.Generate(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to generate insights")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, result)
}

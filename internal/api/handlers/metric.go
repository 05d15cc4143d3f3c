package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/cloudops/internal/api/dto"
	"github.com/pratik-mahalle/cloudops/internal/domain/metric"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/pkg/utils"
	"github.com/pratik-mahalle/cloudops/internal/pkg/validator"
)

type MetricHandler struct {
	service   metric.Service
	logger    *logger.Logger
	validator *validator.Validator
}

func NewMetricHandler(service metric.Service, log *logger.Logger, val *validator.Validator) *MetricHandler {
	return &MetricHandler{service: service, logger: log, validator: val}
}

// Query returns stored samples
// @Summary Query metrics
// @Description Get stored samples of one metric type, most recent first
// @Tags Metrics
// @Produce json
// @Param accountId path string true "Account ID"
// @Param metricType query string true "Metric type"
// @Param startTime query string false "Start time (RFC 3339)"
// @Param endTime query string false "End time (RFC 3339)"
// @Param limit query int false "Maximum samples"
// @Success 200 {array} metric.Metric "Stored samples"
// @Failure 400 {object} utils.ErrorResponse "Invalid query"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /metrics/{accountId} [get]
func (h *MetricHandler) Query(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	start, err := parseTimeQuery(q.Get("startTime"))
	if err != nil {
		utils.WriteError(w, errors.BadRequest("startTime must be RFC 3339"))
		return
	}
	end, err := parseTimeQuery(q.Get("endTime"))
	if err != nil {
		utils.WriteError(w, errors.BadRequest("endTime must be RFC 3339"))
		return
	}

	samples, err := h.service.Query(r.Context(), metric.Query{
		AccountID:  accountID,
		MetricType: q.Get("metricType"),
		Start:      start,
		End:        end,
		Limit:      utils.ParseIntQuery(q.Get("limit"), 0),
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to query metrics")
		return
	}
	if samples == nil {
		samples = []*metric.Metric{}
	}

	utils.WriteSuccess(w, http.StatusOK, samples)
}

// Ingest stores a batch of samples
// @Summary Ingest metrics
// @Tags Metrics
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param request body dto.IngestMetricsRequest true "Samples"
// @Success 201 {object} dto.IngestMetricsResponse "Samples stored"
// @Failure 400 {object} utils.ErrorResponse "Invalid request or validation error"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /metrics/{accountId} [post]
func (h *MetricHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	var req dto.IngestMetricsRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	samples := make([]*metric.Metric, len(req.Metrics))
	for i, m := range req.Metrics {
		samples[i] = &metric.Metric{
			AccountID:  accountID,
			MetricType: m.MetricType,
			Timestamp:  m.Timestamp,
			Value:      m.Value,
			Unit:       m.Unit,
			Namespace:  m.Namespace,
			Dimensions: m.Dimensions,
		}
	}

	if err := h.service.Ingest(r.Context(), samples); err != nil {
		writeServiceError(w, h.logger, err, "Failed to store metrics")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, dto.IngestMetricsResponse{Stored: len(samples)})
}

// Collect pulls the latest samples from CloudWatch
// @Summary Collect metrics now
// @Tags Metrics
// @Produce json
// @Param accountId path string true "Account ID"
// @Success 200 {array} metric.Metric "Collected samples"
// @Failure 502 {object} utils.ErrorResponse "Provider API error"
// @Failure 503 {object} utils.ErrorResponse "Collection not configured"
// @Security ApiKeyAuth
// @Router /metrics/{accountId}/collect [post]
func (h *MetricHandler) Collect(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	samples, err := h.service.Collect(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to collect metrics")
		return
	}
	if samples == nil {
		samples = []*metric.Metric{}
	}

	utils.WriteSuccess(w, http.StatusOK, samples)
}

// Types lists the metric types with stored samples
// @Summary List metric types
// @Tags Metrics
// @Produce json
// @Param accountId path string true "Account ID"
// @Success 200 {array} string "Metric types"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /metrics/{accountId}/types [get]
func (h *MetricHandler) Types(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	types, err := h.service.ListTypes(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list metric types")
		return
	}
	if types == nil {
		types = []string{}
	}

	utils.WriteSuccess(w, http.StatusOK, types)
}

package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/cloudops/internal/api/dto"
	"github.com/pratik-mahalle/cloudops/internal/domain/anomaly"
	"github.com/pratik-mahalle/cloudops/internal/pkg/errors"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/pkg/utils"
	"github.com/pratik-mahalle/cloudops/internal/pkg/validator"
)

type AnomalyHandler struct {
	service   anomaly.Service
	logger    *logger.Logger
	validator *validator.Validator
}

func NewAnomalyHandler(service anomaly.Service, log *logger.Logger, val *validator.Validator) *AnomalyHandler {
	return &AnomalyHandler{service: service, logger: log, validator: val}
}

// Detect runs detection over a supplied series
// @Summary Detect anomalies
// @Description Run z-score detection over the supplied data points and store any anomalies found
// @Tags Anomalies
// @Accept json
// @Produce json
// @Param request body dto.DetectAnomaliesRequest true "Series to analyse"
// @Success 200 {object} anomaly.DetectionResult "Detection result"
// @Failure 400 {object} utils.ErrorResponse "Invalid request or validation error"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /anomalies/detect [post]
func (h *AnomalyHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var req dto.DetectAnomaliesRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	samples := make([]anomaly.Sample, len(req.DataPoints))
	for i, p := range req.DataPoints {
		samples[i] = anomaly.Sample{Timestamp: p.Timestamp, Value: p.Value}
	}

	result, err := h.service.Detect(r.Context(), anomaly.DetectRequest{
		AccountID:           req.AccountID,
		MetricType:          req.MetricType,
		Samples:             samples,
		WindowSize:          req.WindowSize,
		ThresholdMultiplier: req.ThresholdMultiplier,
		MinDataPoints:       req.MinDataPoints,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to detect anomalies")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, result)
}

// DetectForMetric runs detection over stored samples of one metric
// @Summary Detect anomalies in a stored metric
// @Description Load the stored samples of a metric over the lookback window and run detection
// @Tags Anomalies
// @Produce json
// @Param accountId path string true "Account ID"
// @Param metricType path string true "Metric type"
// @Param lookbackHours query int false "Lookback window in hours (default: configured lookback)"
// @Success 200 {object} anomaly.DetectionResult "Detection result"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /anomalies/{accountId}/detect/{metricType} [post]
func (h *AnomalyHandler) DetectForMetric(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	metricType := chi.URLParam(r, "metricType")
	if metricType == "" {
		utils.WriteError(w, errors.BadRequest("metricType is required"))
		return
	}

	hours := utils.ParseIntQuery(r.URL.Query().Get("lookbackHours"), 0)
	if hours < 0 {
		utils.WriteError(w, errors.BadRequest("lookbackHours must not be negative"))
		return
	}

	result, err := h.service.DetectForMetric(r.Context(), accountID, metricType, time.Duration(hours)*time.Hour)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to detect anomalies")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, result)
}

// List returns anomalies with pagination and filtering
// @Summary List anomalies
// @Description Get a paginated list of anomalies, most recent first
// @Tags Anomalies
// @Produce json
// @Param accountId path string true "Account ID"
// @Param metricType query string false "Filter by metric type"
// @Param severity query string false "Filter by severity"
// @Param status query string false "Filter by status"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} utils.PaginatedResponse{items=[]anomaly.Anomaly} "List of anomalies"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /anomalies/{accountId} [get]
func (h *AnomalyHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	paging := utils.ParsePaginationParams(r)

	q := r.URL.Query()
	filter := anomaly.Filter{
		MetricType: q.Get("metricType"),
		Severity:   q.Get("severity"),
		Status:     q.Get("status"),
	}

	anomalies, total, err := h.service.List(r.Context(), accountID, filter, paging.PageSize, paging.Offset)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list anomalies")
		return
	}
	if anomalies == nil {
		anomalies = []*anomaly.Anomaly{}
	}

	utils.WriteSuccess(w, http.StatusOK, utils.NewPaginatedResponse(anomalies, paging.Page, paging.PageSize, total))
}

// Summary returns anomaly counts by severity
// @Summary Anomaly summary
// @Description Count anomalies by severity and open status
// @Tags Anomalies
// @Produce json
// @Param accountId path string true "Account ID"
// @Success 200 {object} anomaly.Summary "Anomaly summary"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /anomalies/{accountId}/summary [get]
func (h *AnomalyHandler) Summary(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	summary, err := h.service.GetSummary(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to summarise anomalies")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, summary)
}

// Get returns a single anomaly
// @Summary Get anomaly by ID
// @Tags Anomalies
// @Produce json
// @Param accountId path string true "Account ID"
// @Param anomalyId path string true "Anomaly ID"
// @Success 200 {object} anomaly.Anomaly "Anomaly details"
// @Failure 404 {object} utils.ErrorResponse "Anomaly not found"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /anomalies/{accountId}/{anomalyId} [get]
func (h *AnomalyHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	a, err := h.service.Get(r.Context(), accountID, chi.URLParam(r, "anomalyId"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to get anomaly")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, a)
}

// UpdateStatus moves an anomaly through its lifecycle
// @Summary Update anomaly status
// @Description Set an anomaly to open, acknowledged, resolved or ignored
// @Tags Anomalies
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param anomalyId path string true "Anomaly ID"
// @Param request body dto.UpdateAnomalyStatusRequest true "New status"
// @Success 200 {object} anomaly.Anomaly "Updated anomaly"
// @Failure 400 {object} utils.ErrorResponse "Invalid status"
// @Failure 404 {object} utils.ErrorResponse "Anomaly not found"
// @Failure 500 {object} utils.ErrorResponse "Internal server error"
// @Security ApiKeyAuth
// @Router /anomalies/{accountId}/{anomalyId}/status [patch]
func (h *AnomalyHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	var req dto.UpdateAnomalyStatusRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	a, err := h.service.UpdateStatus(r.Context(), accountID, chi.URLParam(r, "anomalyId"), req.Status)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update anomaly status")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Anomaly status updated", a)
}
